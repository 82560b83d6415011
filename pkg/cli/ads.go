package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

var dismissAdsCommand = &cli.Command{
	Name:  "dismiss-ads",
	Usage: "Detect and automatically dismiss overlay advertisements",
	Description: `Score the current screen for overlay ads and, when confidence reaches the
auto threshold, tap the detected close button, settle, and re-check, up to
the configured attempt limit. Detection alone (no taps) with --detect-only.

Examples:
  screenlens dismiss-ads
  screenlens dismiss-ads --detect-only`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "detect-only",
			Usage: "Report the confidence score without tapping anything",
		},
	},
	Action: runDismissAds,
}

// adsResult is the JSON payload for the dismiss-ads command.
type adsResult struct {
	Status    core.Status       `json:"status"`
	Message   string            `json:"message,omitempty"`
	Detection *core.AdDetection `json:"ad_detection"`
	Removal   *core.AdRemoval   `json:"ad_removal,omitempty"`
}

func runDismissAds(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	elements, _, err := rt.scheduler.ExtractUnified(core.ModeStructuralOnly, false)
	if err != nil {
		return printJSON(adsResult{
			Status:  core.StatusError,
			Message: err.Error(),
		})
	}

	detection := rt.dismisser.Detector().Detect(elements)
	if c.Bool("detect-only") {
		return printJSON(adsResult{
			Status:    core.StatusSuccess,
			Detection: detection,
		})
	}

	removal, final := rt.dismisser.AutoClose(elements)
	status := core.StatusSuccess
	if removal.Warning != "" {
		status = core.StatusWarning
	}
	return printJSON(adsResult{
		Status:    status,
		Message:   removal.Warning,
		Detection: rt.dismisser.Detector().Detect(final),
		Removal:   removal,
	})
}
