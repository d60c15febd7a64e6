package http

import (
	"net/http"

	"roora/internal/amqp"
	"roora/internal/core"
)

type eventsPage struct {
	Events  []core.Event
	Budgets []core.EventBudgetSummary
}

type eventFormPage struct {
	Event core.Event
	IsNew bool
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, c session) {
	events, err := s.planner.ListEvents(r.Context(), c.Couple.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	suppliers, err := s.planner.ListSuppliers(r.Context(), c.Couple.ID, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page := eventsPage{Events: events, Budgets: core.CalculateEventBudgets(events, suppliers)}
	s.render(w, r, http.StatusOK, "events", c.view("Events", "events", page))
}

func (s *Server) handleNewEvent(w http.ResponseWriter, r *http.Request, c session) {
	e := core.Event{Type: core.EventWhiteWedding, Currency: c.Couple.PrimaryCurrency}
	s.render(w, r, http.StatusOK, "event_form", c.view("New event", "events", eventFormPage{Event: e, IsNew: true}))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, c session) {
	d, err := s.planner.EventDetail(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "event", c.view(d.Event.Name, "events", d))
}

func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request, c session) {
	e, err := s.planner.GetEvent(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "event_form", c.view("Edit "+e.Name, "events", eventFormPage{Event: e}))
}

// eventFromForm reads the fields shared by the create and edit forms.
func eventFromForm(f *formReader) core.Event {
	return core.Event{
		Name:     f.Text("name"),
		Type:     core.EventType(f.Text("event_type")),
		Date:     f.Date("event_date"),
		Location: f.Text("location"),
		Currency: core.Currency(f.Text("currency")),
		Budget:   f.OptionalAmount("budget"),
		Notes:    f.Text("notes"),
	}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	e := eventFromForm(f)
	checklist := f.Bool("add_checklist")
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.planner.CreateEvent(r.Context(), c.Couple, e, checklist)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityEvent, amqp.OpCreate, "Event added", "/dashboard/events/"+created.ID)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	e := eventFromForm(f)
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	e.ID = r.PathValue("id")
	if err := s.planner.UpdateEvent(r.Context(), c.Couple, e); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityEvent, amqp.OpUpdate, "Event updated", "/dashboard/events/"+e.ID)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request, c session) {
	if err := s.planner.DeleteEvent(r.Context(), c.Couple.ID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityEvent, amqp.OpDelete, "Event deleted", "/dashboard/events")
}

// eventOptions loads the events offered by supplier and task forms.
func (s *Server) eventOptions(r *http.Request, c session) ([]core.Event, error) {
	return s.planner.ListEvents(r.Context(), c.Couple.ID)
}
