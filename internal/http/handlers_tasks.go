package http

import (
	"io"
	"net/http"
	"strings"

	"roora/internal/amqp"
	"roora/internal/core"
	"roora/internal/log"
)

type tasksPage struct {
	Tasks   []core.TaskWithEvent
	Events  []core.Event
	Members []core.Member
	Filter  core.TaskStatus
	Counts  map[core.TaskStatus]int
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, c session) {
	ctx := r.Context()
	all, err := s.planner.ListTasks(ctx, c.Couple.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.eventOptions(r, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	members, err := s.planner.Members(ctx, c.Couple.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page := tasksPage{Events: events, Members: members, Counts: map[core.TaskStatus]int{}}
	if f := core.TaskStatus(r.URL.Query().Get("status")); f.Valid() {
		page.Filter = f
	}
	for _, t := range all {
		page.Counts[t.Status]++
		if page.Filter == "" || t.Status == page.Filter {
			page.Tasks = append(page.Tasks, t)
		}
	}
	s.render(w, r, http.StatusOK, "tasks", c.view("Tasks", "tasks", page))
}

func taskFromForm(f *formReader) core.Task {
	return core.Task{
		EventID:     f.Text("event_id"),
		Title:       f.Text("title"),
		Description: f.Text("description"),
		DueDate:     f.Date("due_date"),
		Status:      core.TaskStatus(f.Text("status")),
		AssignedTo:  f.Text("assigned_to"),
		IsMilestone: f.Bool("is_milestone"),
		SortOrder:   f.Int("sort_order"),
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	t := taskFromForm(f)
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	if t.EventID == "" {
		s.fail(w, r, &core.ValidationError{Field: "event_id", Err: errEventRequired})
		return
	}
	if _, err := s.planner.CreateTask(r.Context(), c.Couple.ID, t); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityTask, amqp.OpCreate, "Task added", "/dashboard/tasks")
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	t := taskFromForm(f)
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	t.ID = r.PathValue("id")
	if t.Status == "" {
		t.Status = core.TaskPending
	}
	if err := s.planner.UpdateTask(r.Context(), c.Couple.ID, t); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityTask, amqp.OpUpdate, "Task updated", "/dashboard/tasks")
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	status := core.TaskStatus(newFormReader(r).Text("status"))
	if err := s.planner.UpdateTaskStatus(r.Context(), c.Couple.ID, r.PathValue("id"), status); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityTask, amqp.OpUpdate, "Task marked "+strings.ToLower(status.Label()), "/dashboard/tasks")
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, c session) {
	if err := s.planner.DeleteTask(r.Context(), c.Couple.ID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityTask, amqp.OpDelete, "Task deleted", "/dashboard/tasks")
}

func (s *Server) handleInspiration(w http.ResponseWriter, r *http.Request, c session) {
	photos, err := s.planner.ListPhotos(r.Context(), c.Couple.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "inspiration", c.view("Inspiration", "inspiration", photos))
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	file, err := uploadedFile(r, "file")
	if err != nil {
		s.fail(w, r, errMalformedForm)
		return
	}
	var body io.Reader
	if file != nil {
		defer file.Close()
		body = file
	}
	if _, err := s.planner.UploadInspirationPhoto(r.Context(), c.Couple.ID, newFormReader(r).Text("caption"), body); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityPhoto, amqp.OpCreate, "Photo added", "/dashboard/inspiration")
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request, c session) {
	if err := s.planner.DeleteInspirationPhoto(r.Context(), c.Couple.ID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityPhoto, amqp.OpDelete, "Photo removed", "/dashboard/inspiration")
}

// handleFile streams a stored upload after the planner has checked that
// the path belongs to the caller's couple.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, c session) {
	bucket, name := r.PathValue("bucket"), r.PathValue("path")
	rc, err := s.planner.OpenFile(r.Context(), c.Couple.ID, bucket, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rc.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		s.fail(w, r, err)
		return
	}
	head = head[:n]
	w.Header().Set("Content-Type", http.DetectContentType(head))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(head); err != nil {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "File stream interrupted", log.FieldPath, r.URL.Path, log.FieldError, err)
	}
}
