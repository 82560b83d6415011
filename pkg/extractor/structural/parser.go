package structural

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

// node is one accessibility-tree entry before unification.
type node struct {
	text        string
	resourceID  string
	contentDesc string
	className   string
	pkg         string
	boundsRaw   string
	clickable   bool
	enabled     bool
	focusable   bool
	scrollable  bool
	checkable   bool
	checked     bool
	selected    bool
	children    []*node
}

// ParseHierarchy parses an Android UI hierarchy document into unified
// elements, normalizing bounds against the given screen size. Supports both
// dump formats: <node> entries with a class attribute, and class names used
// directly as element tags.
func ParseHierarchy(xmlData string, screen core.ScreenSize) ([]core.UnifiedElement, error) {
	decoder := xml.NewDecoder(strings.NewReader(xmlData))

	foundHierarchy := false
	var roots []*node
	var parseNode func() (*node, error)

	parseNode = func() (*node, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				// The synthetic hierarchy root is skipped
				if t.Name.Local == "hierarchy" {
					foundHierarchy = true
					continue
				}

				n := &node{
					className: t.Name.Local,
					boundsRaw: "[0,0][0,0]",
				}

				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "text":
						n.text = strings.TrimSpace(attr.Value)
					case "resource-id":
						n.resourceID = attr.Value
					case "content-desc":
						n.contentDesc = attr.Value
					case "class":
						n.className = attr.Value
					case "package":
						n.pkg = attr.Value
					case "bounds":
						n.boundsRaw = attr.Value
					case "clickable":
						n.clickable = attr.Value == "true"
					case "enabled":
						n.enabled = attr.Value == "true"
					case "focusable":
						n.focusable = attr.Value == "true"
					case "scrollable":
						n.scrollable = attr.Value == "true"
					case "checkable":
						n.checkable = attr.Value == "true"
					case "checked":
						n.checked = attr.Value == "true"
					case "selected":
						n.selected = attr.Value == "true"
					}
				}

				for {
					child, err := parseNode()
					if err != nil || child == nil {
						break
					}
					n.children = append(n.children, child)
				}

				return n, nil

			case xml.EndElement:
				return nil, nil // end of current element
			}
		}
	}

	var parseErr error
	for {
		n, err := parseNode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				parseErr = err
			}
			break
		}
		if n != nil {
			roots = append(roots, n)
		}
	}

	if parseErr != nil && len(roots) == 0 {
		return nil, parseErr
	}
	if !foundHierarchy {
		return nil, fmt.Errorf("invalid dump: no hierarchy element found")
	}

	var elements []core.UnifiedElement
	for i, root := range roots {
		collect(root, strconv.Itoa(i), screen, &elements)
	}
	return elements, nil
}

// collect flattens the tree depth-first, emitting one unified element per
// node. A node with an unparsable bounds string is dropped; its children are
// still visited.
func collect(n *node, path string, screen core.ScreenSize, out *[]core.UnifiedElement) {
	x1, y1, x2, y2, ok := parseBounds(n.boundsRaw)
	if ok {
		*out = append(*out, unify(n, path, x1, y1, x2, y2, screen, len(*out)))
	}
	for i, child := range n.children {
		collect(child, path+"/"+strconv.Itoa(i), screen, out)
	}
}

func unify(n *node, path string, x1, y1, x2, y2 int, screen core.ScreenSize, ordinal int) core.UnifiedElement {
	var bounds core.NormBounds
	var cx, cy float64
	if screen.Width > 0 && screen.Height > 0 {
		bounds = core.NormBounds{
			clamp01(float64(x1) / float64(screen.Width)),
			clamp01(float64(y1) / float64(screen.Height)),
			clamp01(float64(x2) / float64(screen.Width)),
			clamp01(float64(y2) / float64(screen.Height)),
		}
		cx, cy = bounds.Center()
	}

	// First non-empty label wins
	name := n.resourceID
	if name == "" {
		name = n.text
	}
	if name == "" {
		name = n.className
	}

	return core.UnifiedElement{
		UUID:        fmt.Sprintf("structural_%d", ordinal),
		ElementType: core.ElementStructural,
		Name:        name,
		Text:        n.text,
		Package:     n.pkg,
		ResourceID:  n.resourceID,
		ClassName:   n.className,
		Clickable:   n.clickable,
		Bounds:      bounds,
		CenterX:     cx,
		CenterY:     cy,
		Confidence:  1.0, // tree geometry is ground truth
		Source:      core.SourceXMLExtractor,
		Metadata: core.Metadata{
			Path:          path,
			RawBounds:     n.boundsRaw,
			ContentDesc:   n.contentDesc,
			Enabled:       n.enabled,
			Focusable:     n.focusable,
			Scrollable:    n.scrollable,
			Checkable:     n.checkable,
			Checked:       n.checked,
			Selected:      n.selected,
			ChildrenCount: len(n.children),
			ScreenSize:    screen,
		},
	}
}

// parseBounds parses an Android bounds string "[x1,y1][x2,y2]".
func parseBounds(s string) (x1, y1, x2, y2 int, ok bool) {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, false
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
