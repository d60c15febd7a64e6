package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"roora/internal/auth"
	"roora/internal/core"
	"roora/internal/log"
	"roora/internal/services"
	"roora/internal/storage"
)

// view is the data every page template receives.
type view struct {
	Title  string
	Nav    string
	User   *auth.Claims
	Couple *core.Couple
	Role   core.MemberRole
	Flash  string
	Error  string
	Data   any
}

// session is what tenant handlers know about the caller.
type session struct {
	UserID     string
	Claims     *auth.Claims
	Couple     core.Couple
	Membership core.Membership
}

func (c session) view(title, nav string, data any) view {
	couple := c.Couple
	return view{Title: title, Nav: nav, User: c.Claims, Couple: &couple, Role: c.Membership.Role, Data: data}
}

type tenantHandler func(w http.ResponseWriter, r *http.Request, c session)

// member requires a signed-in user; the couple may not exist yet.
func (s *Server) member(h tenantHandler) http.Handler {
	return s.sessions.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.UserFromContext(r.Context())
		h(w, r, session{UserID: claims.UserID, Claims: claims})
	}))
}

// tenant requires a signed-in user with a couple. Users without one see
// the onboarding page on GET and are sent there on POST.
func (s *Server) tenant(h tenantHandler) http.Handler {
	return s.member(func(w http.ResponseWriter, r *http.Request, c session) {
		couple, m, err := s.planner.CurrentCouple(r.Context(), c.UserID)
		if errors.Is(err, services.ErrNoCouple) {
			if r.Method == http.MethodGet {
				s.render(w, r, http.StatusOK, "onboarding", view{Title: "Create your wedding", User: c.Claims})
				return
			}
			s.redirect(w, r, "/dashboard")
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		c.Couple, c.Membership = couple, m
		h(w, r, c)
	})
}

// render executes a full page. Template errors are logged and answered
// with a plain 500 since nothing has been written yet.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	if v.Flash == "" {
		v.Flash = flashMessage(r.URL.Query().Get("success"))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	var buf bytes.Buffer
	if err := s.templates.Render(&buf, page, v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", page)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func flashMessage(code string) string {
	switch code {
	case "created":
		return "Saved."
	case "updated":
		return "Changes saved."
	case "deleted":
		return "Deleted."
	case "joined":
		return "Welcome to the wedding!"
	}
	return ""
}

// redirect answers HTMX requests with HX-Redirect and everything else with
// 303 See Other.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(to).Status(http.StatusOK).Write(w)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// done acknowledges a successful form action: a success notification and
// record-changed trigger for HTMX, then the redirect.
func (s *Server) done(w http.ResponseWriter, r *http.Request, entity, op, msg, to string) {
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerRecordChanged(entity, op).
			TriggerSuccessNotification(msg).
			Redirect(to).
			Status(http.StatusOK).
			Write(w)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail maps an error to its status code and writes the error fragment.
// Only validation and auth errors reveal their message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		UnprocessableEntityError(ve.Err.Error()).Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, auth.ErrInvalidEmail):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Not found").Write(w)
	case errors.Is(err, errMalformedForm):
		BadRequestError("Invalid request format").Write(w)
	case errors.Is(err, services.ErrStorageAbsent):
		logger.ErrorContext(ctx, "File storage not configured", log.FieldPath, r.URL.Path)
		InternalServerError("File uploads are not available right now").Write(w)
	default:
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err,
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		InternalServerError("Something went wrong. Please try again.").Write(w)
	}
}

// withQuery appends key=value to a local path.
func withQuery(path, key, value string) string {
	return path + "?" + url.Values{key: {value}}.Encode()
}
