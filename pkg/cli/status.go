package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Show device, vision, and extraction-mode status",
	Description: `Report the connected device, the vision service's availability, the
current extraction mode, and the playback state.

Examples:
  screenlens status
  screenlens -s emulator-5554 status`,
	Action: runStatus,
}

var playbackCommand = &cli.Command{
	Name:  "playback",
	Usage: "Report whether media is currently playing",
	Description: `Probe the device's audio and media-session diagnostics and report the
aggregated playback state: playing, stopped, or unknown.

Examples:
  screenlens playback`,
	Action: runPlayback,
}

// statusResult is the JSON payload for the status command.
type statusResult struct {
	Status       core.Status    `json:"status"`
	Device       deviceStatus   `json:"device"`
	Mode         *core.ModeInfo `json:"mode"`
	CurrentFocus string         `json:"current_focus,omitempty"`
}

type deviceStatus struct {
	Serial     string `json:"serial"`
	Connection string `json:"connection"`
	Model      string `json:"model,omitempty"`
	SDK        string `json:"sdk,omitempty"`
	IsEmulator bool   `json:"is_emulator,omitempty"`
}

func runStatus(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	ds := deviceStatus{
		Serial:     rt.gateway.Serial(),
		Connection: rt.gateway.ConnectionStatus(),
	}
	if info, err := rt.gateway.Info(); err == nil {
		ds.Model = info.Model
		ds.SDK = info.SDK
		ds.IsEmulator = info.IsEmulator
	}

	result := statusResult{
		Status: core.StatusSuccess,
		Device: ds,
		Mode:   rt.scheduler.Info(),
	}
	if focus, err := rt.gateway.CurrentFocus(); err == nil {
		result.CurrentFocus = focus
	}

	return printJSON(result)
}

// playbackResult is the JSON payload for the playback command.
type playbackResult struct {
	Status        core.Status        `json:"status"`
	PlaybackState core.PlaybackState `json:"playback_state"`
}

func runPlayback(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	return printJSON(playbackResult{
		Status:        core.StatusSuccess,
		PlaybackState: rt.scheduler.PlaybackState(),
	})
}
