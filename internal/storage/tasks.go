package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const taskColumns = `t.id, t.event_id, t.title, t.description, t.due_date, t.status, t.assigned_to,
 t.is_milestone, t.sort_order, t.created_at, t.updated_at`

func taskDest(t *core.Task, due, status, assigned *sql.NullString, milestone *int, created, updated *string) []any {
	return []any{&t.ID, &t.EventID, &t.Title, &t.Description, due, status, assigned,
		milestone, &t.SortOrder, created, updated}
}

func finishTask(t *core.Task, due, status, assigned sql.NullString, milestone int, created, updated string) {
	t.DueDate = parseDate(due)
	t.Status = core.TaskStatus(status.String)
	t.AssignedTo = assigned.String
	t.IsMilestone = milestone != 0
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
}

func scanTask(s scanner, extra ...any) (core.Task, error) {
	var t core.Task
	var due, status, assigned sql.NullString
	var milestone int
	var created, updated string
	if err := s.Scan(append(taskDest(&t, &due, &status, &assigned, &milestone, &created, &updated), extra...)...); err != nil {
		return core.Task{}, err
	}
	finishTask(&t, due, status, assigned, milestone, created, updated)
	return t, nil
}

// ListTasks returns every task of the couple with its event and assignee
// names, by due date with undated tasks last.
func (q *Queries) ListTasks(ctx context.Context, coupleID string) ([]core.TaskWithEvent, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+taskColumns+`, e.name, COALESCE(u.display_name, '')
		 FROM tasks t JOIN events e ON e.id = t.event_id
		 LEFT JOIN users u ON u.id = t.assigned_to
		 WHERE e.couple_id = ?
		 ORDER BY t.due_date IS NULL, t.due_date ASC, t.sort_order ASC, t.created_at ASC`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []core.TaskWithEvent
	for rows.Next() {
		var tw core.TaskWithEvent
		t, err := scanTask(rows, &tw.EventName, &tw.AssigneeName)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tw.Task = t
		out = append(out, tw)
	}
	return out, rows.Err()
}

func (q *Queries) listEventTasks(ctx context.Context, coupleID, eventID string, milestonesOnly bool) ([]core.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t JOIN events e ON e.id = t.event_id
		WHERE t.event_id = ? AND e.couple_id = ?`
	order := ` ORDER BY t.due_date IS NULL, t.due_date ASC, t.sort_order ASC`
	if milestonesOnly {
		query += ` AND t.is_milestone = 1`
		order = ` ORDER BY t.sort_order ASC, t.created_at ASC`
	}
	rows, err := q.db.QueryContext(ctx, query+order, eventID, coupleID)
	if err != nil {
		return nil, fmt.Errorf("list event tasks: %w", err)
	}
	defer rows.Close()
	var out []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) ListTasksByEvent(ctx context.Context, coupleID, eventID string) ([]core.Task, error) {
	return q.listEventTasks(ctx, coupleID, eventID, false)
}

// ListMilestones returns the event's milestone tasks in checklist order.
func (q *Queries) ListMilestones(ctx context.Context, coupleID, eventID string) ([]core.Task, error) {
	return q.listEventTasks(ctx, coupleID, eventID, true)
}

func (q *Queries) GetTask(ctx context.Context, coupleID, id string) (core.Task, error) {
	t, err := scanTask(q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t JOIN events e ON e.id = t.event_id
		 WHERE t.id = ? AND e.couple_id = ?`, id, coupleID))
	return t, notFound(err)
}

// CreateTask inserts t when its event belongs to the couple and the
// assignee, if any, is a member of it.
func (q *Queries) CreateTask(ctx context.Context, coupleID string, t *core.Task) error {
	now := q.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	assignee := nullString(t.AssignedTo)
	err := affected(q.db.ExecContext(ctx,
		`INSERT INTO tasks (id, event_id, title, description, due_date, status, assigned_to,
		  is_milestone, sort_order, created_at, updated_at)
		 SELECT ?, e.id, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM events e WHERE e.id = ? AND e.couple_id = ?
		   AND (? IS NULL OR EXISTS (SELECT 1 FROM memberships m WHERE m.couple_id = e.couple_id AND m.user_id = ?))`,
		t.ID, t.Title, t.Description, formatDate(t.DueDate), string(t.Status), assignee,
		boolInt(t.IsMilestone), t.SortOrder, formatTime(now), formatTime(now),
		t.EventID, coupleID, assignee, assignee))
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("insert task: %w", err)
	}
	return err
}

func (q *Queries) UpdateTask(ctx context.Context, coupleID string, t core.Task) error {
	assignee := nullString(t.AssignedTo)
	return affected(q.db.ExecContext(ctx,
		`UPDATE tasks SET event_id = ?, title = ?, description = ?, due_date = ?, status = ?,
		  assigned_to = ?, is_milestone = ?, sort_order = ?, updated_at = ?
		 WHERE id = ?
		   AND event_id IN (SELECT id FROM events WHERE couple_id = ?)
		   AND EXISTS (SELECT 1 FROM events WHERE id = ? AND couple_id = ?)
		   AND (? IS NULL OR EXISTS (SELECT 1 FROM memberships WHERE couple_id = ? AND user_id = ?))`,
		t.EventID, t.Title, t.Description, formatDate(t.DueDate), string(t.Status),
		assignee, boolInt(t.IsMilestone), t.SortOrder, formatTime(q.now()),
		t.ID, coupleID, t.EventID, coupleID, assignee, coupleID, assignee))
}

func (q *Queries) UpdateTaskStatus(ctx context.Context, coupleID, id string, status core.TaskStatus) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ?
		 WHERE id = ? AND event_id IN (SELECT id FROM events WHERE couple_id = ?)`,
		string(status), formatTime(q.now()), id, coupleID))
}

func (q *Queries) DeleteTask(ctx context.Context, coupleID, id string) error {
	return affected(q.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND event_id IN (SELECT id FROM events WHERE couple_id = ?)`,
		id, coupleID))
}
