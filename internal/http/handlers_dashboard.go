package http

import (
	"net/http"

	"roora/internal/amqp"
	"roora/internal/core"
)

type dashboardPage struct {
	Stats   core.DashboardStats
	Members []core.Member
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, c session) {
	stats, err := s.planner.Dashboard(r.Context(), c.Couple)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	members, err := s.planner.Members(r.Context(), c.Couple.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", c.view(c.Couple.Name, "dashboard", dashboardPage{Stats: stats, Members: members}))
}

func (s *Server) handleCreateWedding(w http.ResponseWriter, r *http.Request, c session) {
	if _, _, err := s.planner.CurrentCouple(r.Context(), c.UserID); err == nil {
		s.redirect(w, r, "/dashboard")
		return
	}
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	couple, err := s.planner.CreateWedding(r.Context(), c.UserID,
		f.Text("name"), core.MemberRole(f.Text("role")), core.Currency(f.Text("currency")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityCouple, amqp.OpCreate, "Created "+couple.Name, "/dashboard")
}

func (s *Server) handleJoinWedding(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	couple, err := s.planner.JoinWedding(r.Context(), c.UserID, f.Text("invite_code"), core.MemberRole(f.Text("role")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityCouple, amqp.OpUpdate, "Joined "+couple.Name, withQuery("/dashboard", "success", "joined"))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request, c session) {
	o, err := s.planner.BudgetOverview(r.Context(), c.Couple)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "budget", c.view("Budget", "budget", o))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := core.ParseOptionalCents(r.Form.Get("total_budget"))
	if err != nil {
		s.fail(w, r, &core.ValidationError{Err: core.ErrNegativeBudget})
		return
	}
	if err := s.planner.UpdateBudget(r.Context(), c.Couple.ID, core.Money{Cents: amount}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityCouple, amqp.OpUpdate, "Budget updated", "/dashboard/budget")
}

type settingsPage struct {
	Profile core.Profile
	Members []core.Member
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, c session) {
	profile, err := s.planner.Profile(r.Context(), c.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	members, err := s.planner.Members(r.Context(), c.Couple.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "settings", c.view("Settings", "settings", settingsPage{Profile: profile, Members: members}))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.planner.UpdateDisplayName(r.Context(), c.UserID, newFormReader(r).Text("display_name")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, "profile", amqp.OpUpdate, "Profile updated", withQuery("/dashboard/settings", "success", "updated"))
}
