package core

import (
	"testing"
	"time"
)

func TestDefaultChecklists(t *testing.T) {
	c := DefaultChecklists()
	for _, et := range EventTypes {
		items := c.For(et)
		if len(items) == 0 {
			t.Fatalf("no checklist for %s", et)
		}
		for i := 1; i < len(items); i++ {
			if items[i-1].Sort > items[i].Sort {
				t.Fatalf("%s checklist not ordered", et)
			}
		}
	}
	if got, want := len(c.For("unknown")), len(c.For(EventOther)); got != want {
		t.Fatalf("unknown type should fall back to other: %d vs %d", got, want)
	}
}

func TestParseChecklistsRejectsUnknownType(t *testing.T) {
	doc := []byte("other:\n  - {title: x, days_before: 1, sort: 1}\nbraai:\n  - {title: y}\n")
	if _, err := ParseChecklists(doc); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
	if _, err := ParseChecklists([]byte("lobola: []\n")); err == nil {
		t.Fatalf("expected error when the other list is missing")
	}
}

func TestMilestoneTasks(t *testing.T) {
	c, err := ParseChecklists([]byte(`
other:
  - {title: Second, days_before: 7, sort: 2}
  - {title: First, days_before: 30, sort: 1}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	date := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	tasks := c.MilestoneTasks(Event{ID: "e1", Type: EventOther, Date: &date})
	if len(tasks) != 2 || tasks[0].Title != "First" || tasks[0].SortOrder != 1 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if !tasks[0].IsMilestone || tasks[0].EventID != "e1" || tasks[0].Status != TaskPending {
		t.Fatalf("task fields not set: %+v", tasks[0])
	}
	if got := InputDate(tasks[0].DueDate); got != "2026-05-31" {
		t.Fatalf("due date = %s, want 2026-05-31", got)
	}

	undated := c.MilestoneTasks(Event{ID: "e2", Type: EventOther})
	if undated[0].DueDate != nil {
		t.Fatalf("undated event should give undated tasks")
	}
}
