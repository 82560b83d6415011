package structural

import (
	"strings"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

// interactiveClasses are class-name substrings that imply a tappable
// control even when the tree reports clickable=false. Settings-style apps
// routinely mark the container clickable instead of the widget.
var interactiveClasses = []string{
	"Button", "ImageButton", "CheckBox", "RadioButton",
	"Switch", "ToggleButton", "MenuItem", "Tab", "Chip",
}

const nameTruncateLen = 30

// Enrich runs the post-pass over freshly parsed elements: infers
// clickability from class names, backfills text from the content
// description, and gives otherwise-anonymous elements a usable name.
func Enrich(elements []core.UnifiedElement) {
	for i := range elements {
		enrichOne(&elements[i])
	}
}

func enrichOne(e *core.UnifiedElement) {
	if e.Text == "" && e.Metadata.ContentDesc != "" {
		e.Text = e.Metadata.ContentDesc
	}

	if !e.Clickable {
		for _, cls := range interactiveClasses {
			if strings.Contains(e.ClassName, cls) {
				e.Clickable = true
				e.Metadata.InferredClickable = true
				break
			}
		}
	}

	if e.Name == "" || e.Name == e.ClassName {
		switch {
		case strings.Contains(e.ResourceID, "/"):
			idPart := e.ResourceID[strings.LastIndex(e.ResourceID, "/")+1:]
			e.Name = titleWords(strings.ReplaceAll(idPart, "_", " "))
		case strings.TrimSpace(e.Text) != "":
			e.Name = truncate(strings.TrimSpace(e.Text), nameTruncateLen)
		case e.Metadata.ContentDesc != "":
			e.Name = truncate(e.Metadata.ContentDesc, nameTruncateLen)
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// titleWords upper-cases the first letter of each space-separated word.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
