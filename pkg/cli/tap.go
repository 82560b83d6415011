package cli

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screenlens/pkg/interact"
)

var tapCommand = &cli.Command{
	Name:      "tap",
	Usage:     "Tap an element by UUID or text",
	ArgsUsage: "<uuid-or-text>",
	Description: `Resolve the target against the current screen and tap it. UUIDs are tried
first, then a case-insensitive text search over element text and name,
preferring clickable matches.

--bias shifts the tap upward by 2% of the screen height, for media tiles
whose caption sits below the real hit target. --auto-bias applies the shift
only when the target text names media content (video, episode, 节目, ...).

Examples:
  screenlens tap structural_12
  screenlens tap "Play Video" --bias
  screenlens tap "下一集" --auto-bias`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "bias",
			Usage: "Shift the tap upward by the configured bias fraction",
		},
		&cli.BoolFlag{
			Name:  "auto-bias",
			Usage: "Apply bias only when the target looks like media content",
		},
		&cli.BoolFlag{
			Name:  "exact",
			Usage: "Exact text matching instead of substring",
		},
	},
	Action: runTap,
}

var swipeCommand = &cli.Command{
	Name:      "swipe",
	Usage:     "Swipe between two pixel coordinates",
	ArgsUsage: "<x1> <y1> <x2> <y2>",
	Description: `Issue a swipe gesture between two pixel positions.

Examples:
  screenlens swipe 540 1500 540 500
  screenlens swipe 540 1500 540 500 --duration 800`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "duration",
			Usage: "Gesture duration in milliseconds",
			Value: 300,
		},
	},
	Action: runSwipe,
}

func runSwipe(c *cli.Context) error {
	if c.NArg() != 4 {
		return fmt.Errorf("four coordinates are required: x1 y1 x2 y2")
	}
	coords := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(c.Args().Get(i))
		if err != nil {
			return fmt.Errorf("coordinate %q is not a number", c.Args().Get(i))
		}
		coords[i] = v
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	if err := rt.gateway.Swipe(coords[0], coords[1], coords[2], coords[3], c.Int("duration")); err != nil {
		return err
	}
	fmt.Printf("swiped (%d,%d) -> (%d,%d)\n", coords[0], coords[1], coords[2], coords[3])
	return nil
}

func runTap(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one target (uuid or text) is required")
	}
	target := c.Args().First()

	rt, err := setup(c)
	if err != nil {
		return err
	}

	bias := c.Bool("bias")
	if c.Bool("auto-bias") && interact.ShouldBias(target) {
		bias = true
	}

	if c.Bool("exact") {
		return printJSON(rt.manager.TapByText(target, false, bias))
	}
	return printJSON(rt.manager.Tap(target, bias))
}
