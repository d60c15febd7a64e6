package services

import (
	"context"
	"strings"

	"roora/internal/amqp"
	"roora/internal/core"
)

func (p *Planner) ListTasks(ctx context.Context, coupleID string) ([]core.TaskWithEvent, error) {
	return p.repo.ListTasks(ctx, coupleID)
}

func (p *Planner) CreateTask(ctx context.Context, coupleID string, t core.Task) (core.Task, error) {
	t.ID = ""
	t.Title = strings.TrimSpace(t.Title)
	if t.Status == "" {
		t.Status = core.TaskPending
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	if err := p.repo.CreateTask(ctx, coupleID, &t); err != nil {
		return core.Task{}, err
	}
	p.changed(ctx, coupleID, amqp.EntityTask, t.ID, amqp.OpCreate, "Added task "+t.Title)
	return t, nil
}

func (p *Planner) UpdateTask(ctx context.Context, coupleID string, t core.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if err := t.Validate(); err != nil {
		return err
	}
	if err := p.repo.UpdateTask(ctx, coupleID, t); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityTask, t.ID, amqp.OpUpdate, "Updated task "+t.Title)
	return nil
}

func (p *Planner) UpdateTaskStatus(ctx context.Context, coupleID, id string, status core.TaskStatus) error {
	if !status.Valid() {
		return &core.ValidationError{Field: "status", Err: core.ErrInvalidStatus}
	}
	if err := p.repo.UpdateTaskStatus(ctx, coupleID, id, status); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityTask, id, amqp.OpUpdate, "Marked a task "+strings.ToLower(status.Label()))
	return nil
}

func (p *Planner) DeleteTask(ctx context.Context, coupleID, id string) error {
	if err := p.repo.DeleteTask(ctx, coupleID, id); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityTask, id, amqp.OpDelete, "Removed a task")
	return nil
}
