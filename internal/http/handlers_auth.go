package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"roora/internal/auth"
	"roora/internal/core"
	"roora/internal/log"
)

type authForm struct {
	Next        string
	Email       string
	DisplayName string
	Sent        bool
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "landing", view{Title: "Plan every ceremony"})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"), "/dashboard")
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	v := view{Title: "Sign in", Data: authForm{Next: next}}
	if r.URL.Query().Get("error") == "auth_callback_failed" {
		v.Error = "That sign-in link is invalid or has expired. Please request a new one."
	}
	s.render(w, r, http.StatusOK, "login", v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	email := strings.ToLower(f.Text("email"))
	user, err := s.auth.Authenticate(r.Context(), email, r.Form.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed sign-in attempt", "email", email)
		}
		s.fail(w, r, err)
		return
	}
	if err := s.startSession(w, user); err != nil {
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, auth.SafeNext(f.Text("next"), "/dashboard"))
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "signup", view{Title: "Create an account", Data: authForm{Next: "/dashboard"}})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	user, err := s.auth.Register(r.Context(), f.Text("email"), f.Text("display_name"), r.Form.Get("password"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, user.ID)
	if err := s.startSession(w, user); err != nil {
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, "/dashboard")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.Clear(w)
	s.redirect(w, r, "/")
}

// handleMagicLink issues a one-time sign-in link. Delivery is out of scope:
// the link is logged. The response never reveals whether the email exists.
func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	email := strings.ToLower(f.Text("email"))
	next := auth.SafeNext(f.Text("next"), "/dashboard")
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	user, err := s.auth.Lookup(ctx, email)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.InfoContext(ctx, "Sign-in link requested for unknown email")
	case err != nil:
		s.fail(w, r, err)
		return
	default:
		code, err := s.sessions.IssueLoginCode(user)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		link := strings.TrimRight(s.baseURL, "/") + "/auth/callback?" + url.Values{"code": {code}, "next": {next}}.Encode()
		logger.InfoContext(ctx, "Sign-in link issued", log.FieldUserID, user.ID, "link", link)
	}

	if isHTMX(r) {
		NewHTMXResponse().
			TriggerSuccessNotification("If that email has an account, a sign-in link is on its way.").
			BodyHTML(`<div class="notice">Check your inbox for a sign-in link.</div>`).
			Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "login", view{Title: "Sign in", Data: authForm{Next: next, Email: email, Sent: true}})
}

// handleCallback exchanges a login-link code for a session.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	failed := "/auth/login?error=auth_callback_failed"

	claims, err := s.sessions.ExchangeLoginCode(ctx, q.Get("code"))
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Sign-in link rejected", log.FieldError, err)
		http.Redirect(w, r, failed, http.StatusSeeOther)
		return
	}
	user, err := s.auth.User(ctx, claims.UserID)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Sign-in link user missing", log.FieldError, err)
		http.Redirect(w, r, failed, http.StatusSeeOther)
		return
	}
	if err := s.startSession(w, user); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, auth.SafeNext(q.Get("next"), "/dashboard"), http.StatusSeeOther)
}

func (s *Server) startSession(w http.ResponseWriter, user *core.User) error {
	token, err := s.sessions.Issue(user)
	if err != nil {
		return err
	}
	s.cookies.Set(w, token, s.sessions.SessionTTL())
	return nil
}
