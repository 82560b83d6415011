package scheduler

import (
	"strings"

	"github.com/devicelab-dev/screenlens/pkg/core"
)

// FindByText returns elements whose text or name matches the query. Partial
// matching is case-insensitive substring; exact matching is case-insensitive
// equality.
func (s *Scheduler) FindByText(query string, partial bool, useCache bool) ([]core.UnifiedElement, error) {
	elements, _, err := s.ExtractUnified(core.ModeAuto, useCache)
	if err != nil {
		return nil, err
	}
	return FilterByText(elements, query, partial), nil
}

// FindByResourceID returns elements whose resource-id contains the query.
func (s *Scheduler) FindByResourceID(query string, useCache bool) ([]core.UnifiedElement, error) {
	elements, _, err := s.ExtractUnified(core.ModeAuto, useCache)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(query)
	matches := make([]core.UnifiedElement, 0)
	for _, e := range elements {
		if strings.Contains(strings.ToLower(e.ResourceID), lower) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// FindByContentDesc returns elements whose content description contains the
// query.
func (s *Scheduler) FindByContentDesc(query string, useCache bool) ([]core.UnifiedElement, error) {
	elements, _, err := s.ExtractUnified(core.ModeAuto, useCache)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(query)
	matches := make([]core.UnifiedElement, 0)
	for _, e := range elements {
		if strings.Contains(strings.ToLower(e.Metadata.ContentDesc), lower) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// FindByClassName returns elements of the given class, optionally narrowed to
// a package substring.
func (s *Scheduler) FindByClassName(class, pkg string, useCache bool) ([]core.UnifiedElement, error) {
	elements, _, err := s.ExtractUnified(core.ModeAuto, useCache)
	if err != nil {
		return nil, err
	}
	lowerClass := strings.ToLower(class)
	matches := make([]core.UnifiedElement, 0)
	for _, e := range elements {
		if !strings.Contains(strings.ToLower(e.ClassName), lowerClass) {
			continue
		}
		if pkg != "" && !strings.Contains(e.Package, pkg) {
			continue
		}
		matches = append(matches, e)
	}
	return matches, nil
}

// FindClickable returns every element the snapshot considers interactive.
func (s *Scheduler) FindClickable(useCache bool) ([]core.UnifiedElement, error) {
	elements, _, err := s.ExtractUnified(core.ModeAuto, useCache)
	if err != nil {
		return nil, err
	}
	matches := make([]core.UnifiedElement, 0)
	for _, e := range elements {
		if e.Clickable {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// FilterByText filters an element list by text or name without touching the
// device.
func FilterByText(elements []core.UnifiedElement, query string, partial bool) []core.UnifiedElement {
	lower := strings.ToLower(query)
	matches := make([]core.UnifiedElement, 0)
	for _, e := range elements {
		if matchesText(&e, lower, partial) {
			matches = append(matches, e)
		}
	}
	return matches
}

func matchesText(e *core.UnifiedElement, lowerQuery string, partial bool) bool {
	text := strings.ToLower(e.Text)
	name := strings.ToLower(e.Name)
	if partial {
		return strings.Contains(text, lowerQuery) || strings.Contains(name, lowerQuery)
	}
	return text == lowerQuery || name == lowerQuery
}
