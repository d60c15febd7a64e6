package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// toastMillis is how long the success toast stays on screen.
const toastMillis = 3000

// HTMXResponseBuilder collects what a form handler tells htmx: client
// events for HX-Trigger, an optional HX-Redirect, the status and an HTML
// fragment to swap in.
type HTMXResponseBuilder struct {
	events map[string]any
	header http.Header
	status int
	body   string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{events: map[string]any{}, header: http.Header{}, status: http.StatusOK}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// TriggerRecordChanged fires "<entity>:<op>" so fragments listening for
// that record type refresh themselves.
func (b *HTMXResponseBuilder) TriggerRecordChanged(entity, op string) *HTMXResponseBuilder {
	b.events[entity+":"+op] = struct{}{}
	return b
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	b.events["form:reset"] = struct{}{}
	return b
}

// TriggerSuccessNotification shows message in the toast area.
func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	b.events["show-notification"] = map[string]any{"type": "success", "message": message, "duration": toastMillis}
	return b
}

// Redirect makes htmx navigate to url once the response is handled.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = html
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	if len(b.events) > 0 {
		if encoded, err := json.Marshal(b.events); err == nil {
			w.Header().Set("HX-Trigger", string(encoded))
		}
	}
	w.WriteHeader(b.status)
	if b.body != "" {
		_, _ = w.Write([]byte(b.body))
	}
}

// ErrorResponse is the escaped error fragment forms swap into their
// error slot.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().Status(status).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
