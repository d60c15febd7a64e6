package core

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed checklists.yaml
var checklistsYAML []byte

// ChecklistItem is one default milestone of an event type.
type ChecklistItem struct {
	Title      string `yaml:"title"`
	DaysBefore int    `yaml:"days_before"`
	Sort       int    `yaml:"sort"`
}

// Checklists maps event types to their default milestones.
type Checklists map[EventType][]ChecklistItem

// ParseChecklists decodes a checklist document and orders each list by sort.
func ParseChecklists(data []byte) (Checklists, error) {
	var raw map[string][]ChecklistItem
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse checklists: %w", err)
	}
	out := make(Checklists, len(raw))
	for k, items := range raw {
		t := EventType(k)
		if !t.Valid() {
			return nil, fmt.Errorf("parse checklists: unknown event type %q", k)
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Sort < items[j].Sort })
		out[t] = items
	}
	if _, ok := out[EventOther]; !ok {
		return nil, fmt.Errorf("parse checklists: missing %q list", EventOther)
	}
	return out, nil
}

// DefaultChecklists returns the embedded checklists. The document ships
// with the binary, so a decode failure is a programming error.
func DefaultChecklists() Checklists {
	c, err := ParseChecklists(checklistsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// For returns the checklist of t, falling back to the "other" list.
func (c Checklists) For(t EventType) []ChecklistItem {
	if items, ok := c[t]; ok {
		return items
	}
	return c[EventOther]
}

// MilestoneTasks builds the milestone tasks for e. Due dates are counted
// back from the event date; undated events get undated tasks.
func (c Checklists) MilestoneTasks(e Event) []Task {
	items := c.For(e.Type)
	tasks := make([]Task, 0, len(items))
	for _, it := range items {
		t := Task{
			EventID:     e.ID,
			Title:       it.Title,
			Status:      TaskPending,
			IsMilestone: true,
			SortOrder:   it.Sort,
		}
		if e.Date != nil {
			due := e.Date.AddDate(0, 0, -it.DaysBefore)
			t.DueDate = &due
		}
		tasks = append(tasks, t)
	}
	return tasks
}
