// Package cli provides the command-line interface for screenlens.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screenlens/pkg/addetect"
	"github.com/devicelab-dev/screenlens/pkg/config"
	"github.com/devicelab-dev/screenlens/pkg/core"
	"github.com/devicelab-dev/screenlens/pkg/device"
	"github.com/devicelab-dev/screenlens/pkg/extractor/structural"
	"github.com/devicelab-dev/screenlens/pkg/extractor/visual"
	"github.com/devicelab-dev/screenlens/pkg/interact"
	"github.com/devicelab-dev/screenlens/pkg/logger"
	"github.com/devicelab-dev/screenlens/pkg/playback"
	"github.com/devicelab-dev/screenlens/pkg/scheduler"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "serial",
		Aliases: []string{"s"},
		Usage:   "Device serial to target (auto-detected when omitted)",
		EnvVars: []string{"SCREENLENS_SERIAL"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file path (defaults to ./screenlens.yaml when present)",
		EnvVars: []string{"SCREENLENS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "vision-url",
		Usage:   "Vision service base URL (overrides config)",
		EnvVars: []string{"SCREENLENS_VISION_URL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"SCREENLENS_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write logs to a file instead of stderr",
		EnvVars: []string{"SCREENLENS_LOG_FILE"},
	},
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "screenlens",
		Usage:   "Screen perception and interaction for Android devices",
		Version: Version,
		Description: `Screenlens extracts a unified view of the current device screen from the
accessibility tree, a vision service, or both, and taps elements by UUID or
text with media-aware coordinate correction.

Examples:
  screenlens elements
  screenlens elements --mode visual_only
  screenlens find --text "Play" --partial
  screenlens tap "Play Video" --bias
  screenlens dismiss-ads
  screenlens status`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			elementsCommand,
			findCommand,
			tapCommand,
			swipeCommand,
			dismissAdsCommand,
			statusCommand,
			playbackCommand,
		},
	}
}

// runtime wires one device session: gateway, extractors, scheduler, and the
// interaction layer.
type runtime struct {
	cfg       *config.Config
	gateway   *device.AndroidDevice
	scheduler *scheduler.Scheduler
	manager   *interact.Manager
	dismisser *addetect.Dismisser
}

// setup loads configuration then connects the device and vision client.
func setup(c *cli.Context) (*runtime, error) {
	if err := logger.Init(c.String("log-file")); err != nil {
		return nil, err
	}
	logger.SetVerbose(c.Bool("verbose"))

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	gateway, err := device.New(c.String("serial"))
	if err != nil {
		return nil, err
	}

	structuralX := structural.New(gateway, config.Seconds(cfg.Cache.ExtractorTTLSeconds))
	client := visual.NewClient(
		cfg.Vision.ServerURL,
		config.Seconds(cfg.Vision.ParseTimeoutSeconds),
		config.Seconds(cfg.Vision.HealthTimeoutSeconds),
	)
	visualX := visual.New(gateway, client, visual.Options{
		UsePaddleOCR:      cfg.Vision.UsePaddleOCR,
		AssumeInteractive: cfg.Vision.AssumeInteractive,
	}, config.Seconds(cfg.Cache.ExtractorTTLSeconds))
	detector := playback.New(
		gateway,
		config.Seconds(cfg.Cache.PlaybackTTLSeconds),
		cfg.Playback.ConfirmProbe,
		config.Seconds(cfg.Playback.ConfirmDelaySeconds),
	)

	sched := scheduler.New(gateway, structuralX, visualX, detector, config.Seconds(cfg.Cache.UnifiedTTLSeconds))

	return &runtime{
		cfg:       cfg,
		gateway:   gateway,
		scheduler: sched,
		manager:   interact.New(sched, gateway, cfg.Interaction),
		dismisser: addetect.NewDismisser(cfg.Ads, &dismissScreen{scheduler: sched, gateway: gateway}),
	}, nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if url := c.String("vision-url"); url != "" {
		cfg.Vision.ServerURL = url
	}
	return cfg, nil
}

// dismissScreen adapts the scheduler and gateway to the dismissal loop.
type dismissScreen struct {
	scheduler *scheduler.Scheduler
	gateway   core.Gateway
}

func (s *dismissScreen) Refresh() ([]core.UnifiedElement, error) {
	s.scheduler.InvalidateCache()
	elements, _, err := s.scheduler.ExtractUnified(core.ModeStructuralOnly, false)
	return elements, err
}

func (s *dismissScreen) Size() core.ScreenSize {
	return s.scheduler.ScreenSize()
}

func (s *dismissScreen) Tap(x, y int) error {
	return s.gateway.Tap(x, y)
}

// printJSON writes the result as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// parseModeFlag validates the --mode flag, defaulting to auto.
func parseModeFlag(c *cli.Context) (core.ExtractionMode, error) {
	raw := c.String("mode")
	if raw == "" {
		return core.ModeAuto, nil
	}
	mode, err := core.ParseMode(raw)
	if err != nil {
		return "", err
	}
	return mode, nil
}
