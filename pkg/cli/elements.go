package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

var elementsCommand = &cli.Command{
	Name:  "elements",
	Usage: "Extract the unified element view of the current screen",
	Description: `Extract every on-screen element as unified JSON. The extractor is chosen
automatically (structural during normal UI, visual during media playback)
unless --mode pins one.

Examples:
  screenlens elements
  screenlens elements --mode hybrid
  screenlens elements --package com.example.tv
  screenlens elements --dismiss-ads`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Usage: "Extraction mode: auto, structural_only, visual_only, hybrid",
			Value: "auto",
		},
		&cli.StringFlag{
			Name:  "package",
			Usage: "Only include elements whose package contains this string",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Bypass the result cache",
		},
		&cli.BoolFlag{
			Name:  "dismiss-ads",
			Usage: "Detect and auto-dismiss overlay ads before returning",
		},
	},
	Action: runElements,
}

func runElements(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	mode, err := parseModeFlag(c)
	if err != nil {
		return err
	}

	result := rt.scheduler.Elements(mode, !c.Bool("no-cache"), c.String("package"))

	if c.Bool("dismiss-ads") && result.Status == core.StatusSuccess {
		detection := rt.dismisser.Detector().Detect(result.Elements)
		result.AdDetection = detection
		if detection.Confidence >= rt.cfg.Ads.AutoThreshold {
			removal, final := rt.dismisser.AutoClose(result.Elements)
			result.AdRemoval = removal
			result.Elements = final
			result.Summarize()
		}
	}

	return printJSON(result)
}
