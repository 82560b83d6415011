package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

var findCommand = &cli.Command{
	Name:  "find",
	Usage: "Find elements by text, resource-id, content-desc, or class",
	Description: `Search the current screen for elements. Exactly one selector flag is
required; matching is case-insensitive.

Examples:
  screenlens find --text "Play" --partial
  screenlens find --resource-id id/btn_close
  screenlens find --content-desc "Play button"
  screenlens find --class Button --package com.example.tv
  screenlens find --clickable`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "text",
			Usage: "Match against element text and name",
		},
		&cli.BoolFlag{
			Name:  "partial",
			Usage: "Substring matching for --text (default is exact)",
		},
		&cli.StringFlag{
			Name:  "resource-id",
			Usage: "Match against resource-id",
		},
		&cli.StringFlag{
			Name:  "content-desc",
			Usage: "Match against content description",
		},
		&cli.StringFlag{
			Name:  "class",
			Usage: "Match against class name",
		},
		&cli.StringFlag{
			Name:  "package",
			Usage: "Narrow --class matches to a package substring",
		},
		&cli.BoolFlag{
			Name:  "clickable",
			Usage: "List every clickable element",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Bypass the result cache",
		},
	},
	Action: runFind,
}

// findResult is the JSON payload for find queries.
type findResult struct {
	Status   core.Status           `json:"status"`
	Message  string                `json:"message,omitempty"`
	Query    string                `json:"query,omitempty"`
	Count    int                   `json:"count"`
	Elements []core.UnifiedElement `json:"elements"`
}

func runFind(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	useCache := !c.Bool("no-cache")

	var query string
	var matches []core.UnifiedElement
	var findErr error

	switch {
	case c.String("text") != "":
		query = c.String("text")
		matches, findErr = rt.scheduler.FindByText(query, c.Bool("partial"), useCache)
	case c.String("resource-id") != "":
		query = c.String("resource-id")
		matches, findErr = rt.scheduler.FindByResourceID(query, useCache)
	case c.String("content-desc") != "":
		query = c.String("content-desc")
		matches, findErr = rt.scheduler.FindByContentDesc(query, useCache)
	case c.String("class") != "":
		query = c.String("class")
		matches, findErr = rt.scheduler.FindByClassName(query, c.String("package"), useCache)
	case c.Bool("clickable"):
		query = "clickable"
		matches, findErr = rt.scheduler.FindClickable(useCache)
	default:
		return fmt.Errorf("one of --text, --resource-id, --content-desc, --class, or --clickable is required")
	}

	if findErr != nil {
		return printJSON(findResult{
			Status:   core.StatusError,
			Message:  findErr.Error(),
			Query:    query,
			Elements: []core.UnifiedElement{},
		})
	}

	return printJSON(findResult{
		Status:   core.StatusSuccess,
		Query:    query,
		Count:    len(matches),
		Elements: matches,
	})
}
