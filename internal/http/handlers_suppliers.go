package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"roora/internal/amqp"
	"roora/internal/core"
	"roora/internal/log"
)

var errEventRequired = errors.New("Please choose an event")

type suppliersPage struct {
	Suppliers []core.SupplierWithQuotes
	Events    []core.Event
	EventID   string
	Summary   core.BudgetSummary
}

type supplierFormPage struct {
	Supplier core.Supplier
	Events   []core.Event
	IsNew    bool
}

type supplierPage struct {
	Detail core.SupplierDetail
	Today  time.Time
}

func (s *Server) handleSuppliers(w http.ResponseWriter, r *http.Request, c session) {
	eventID := r.URL.Query().Get("event")
	suppliers, err := s.planner.ListSuppliers(r.Context(), c.Couple.ID, eventID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.eventOptions(r, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page := suppliersPage{
		Suppliers: suppliers,
		Events:    events,
		EventID:   eventID,
		Summary:   core.CalculateBudgetSummary(suppliers, c.Couple.PrimaryCurrency),
	}
	s.render(w, r, http.StatusOK, "suppliers", c.view("Suppliers", "suppliers", page))
}

func (s *Server) handleNewSupplier(w http.ResponseWriter, r *http.Request, c session) {
	events, err := s.eventOptions(r, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sup := core.Supplier{EventID: r.URL.Query().Get("event"), Status: core.SupplierResearching}
	s.render(w, r, http.StatusOK, "supplier_form", c.view("New supplier", "suppliers", supplierFormPage{Supplier: sup, Events: events, IsNew: true}))
}

func (s *Server) handleSupplier(w http.ResponseWriter, r *http.Request, c session) {
	d, err := s.planner.GetSupplier(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "supplier", c.view(d.Name, "suppliers", supplierPage{Detail: d, Today: s.now()}))
}

func (s *Server) handleEditSupplier(w http.ResponseWriter, r *http.Request, c session) {
	d, err := s.planner.GetSupplier(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.eventOptions(r, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "supplier_form", c.view("Edit "+d.Name, "suppliers", supplierFormPage{Supplier: d.Supplier, Events: events}))
}

func supplierFromForm(f *formReader) core.Supplier {
	return core.Supplier{
		EventID:        f.Text("event_id"),
		Name:           f.Text("name"),
		Category:       f.Text("category"),
		ContactName:    f.Text("contact_name"),
		Phone:          f.Text("phone"),
		WhatsAppNumber: f.Text("whatsapp_number"),
		SocialMedia:    f.Text("social_media"),
		Email:          f.Text("email"),
		Notes:          f.Text("notes"),
		Status:         core.SupplierStatus(f.Text("status")),
	}
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	sup := supplierFromForm(newFormReader(r))
	if sup.EventID == "" {
		s.fail(w, r, &core.ValidationError{Field: "event_id", Err: errEventRequired})
		return
	}
	if _, err := s.planner.CreateSupplier(r.Context(), c.Couple.ID, sup); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntitySupplier, amqp.OpCreate, "Supplier added", withQuery("/dashboard/suppliers", "success", "created"))
}

func (s *Server) handleUpdateSupplier(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	sup := supplierFromForm(newFormReader(r))
	sup.ID = r.PathValue("id")
	if sup.EventID == "" {
		s.fail(w, r, &core.ValidationError{Field: "event_id", Err: errEventRequired})
		return
	}
	if err := s.planner.UpdateSupplier(r.Context(), c.Couple.ID, sup); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntitySupplier, amqp.OpUpdate, "Supplier updated", "/dashboard/suppliers/"+sup.ID)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request, c session) {
	if err := s.planner.DeleteSupplier(r.Context(), c.Couple.ID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntitySupplier, amqp.OpDelete, "Supplier deleted", withQuery("/dashboard/suppliers", "success", "deleted"))
}

func quoteFromForm(f *formReader) core.Quote {
	return core.Quote{
		Amount:          f.Amount("amount"),
		Currency:        core.Currency(f.Text("currency")),
		DepositRequired: f.OptionalAmount("deposit_required"),
		DueDate:         f.Date("due_date"),
		Notes:           f.Text("notes"),
		IsAccepted:      f.Bool("is_accepted"),
	}
}

// uploadedFile returns the named multipart file, or nil when none was sent.
func uploadedFile(r *http.Request, field string) (multipart.File, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return file, err
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	q := quoteFromForm(f)
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	q.SupplierID = r.PathValue("id")

	file, err := uploadedFile(r, "file")
	if err != nil {
		s.fail(w, r, errMalformedForm)
		return
	}
	if file != nil {
		defer file.Close()
		_, err = s.planner.CreateQuoteWithFile(r.Context(), c.Couple.ID, q, file)
	} else {
		_, err = s.planner.CreateQuote(r.Context(), c.Couple.ID, q)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityQuote, amqp.OpCreate, "Quote added", "/dashboard/suppliers/"+q.SupplierID)
}

func (s *Server) handleUpdateQuote(w http.ResponseWriter, r *http.Request, c session) {
	current, err := s.planner.GetQuote(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	q := quoteFromForm(f)
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	q.ID = current.ID
	q.QuoteFileURL = current.QuoteFileURL
	if err := s.planner.UpdateQuote(r.Context(), c.Couple.ID, q); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityQuote, amqp.OpUpdate, "Quote updated", "/dashboard/suppliers/"+current.SupplierID)
}

func (s *Server) handleDeleteQuote(w http.ResponseWriter, r *http.Request, c session) {
	q, err := s.planner.GetQuote(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.planner.DeleteQuote(r.Context(), c.Couple.ID, q.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityQuote, amqp.OpDelete, "Quote deleted", "/dashboard/suppliers/"+q.SupplierID)
}

// handleUploadQuoteFile stores a quote document. Without quote_id the file
// is kept and its URL returned but not linked to a quote.
func (s *Server) handleUploadQuoteFile(w http.ResponseWriter, r *http.Request, c session) {
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
	supplierID := r.PathValue("id")
	url, err := s.planner.UploadQuoteFile(r.Context(), c.Couple.ID, supplierID, newFormReader(r).Text("quote_id"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Quote document uploaded", log.FieldCoupleID, c.Couple.ID, "url", url)
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerRecordChanged(amqp.EntityQuote, amqp.OpUpdate).
			TriggerSuccessNotification("Document uploaded").
			Header("HX-Redirect", "/dashboard/suppliers/"+supplierID).
			Header("X-File-URL", url).
			Write(w)
		return
	}
	http.Redirect(w, r, "/dashboard/suppliers/"+supplierID, http.StatusSeeOther)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, c session) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	f := newFormReader(r)
	pay := core.Payment{
		QuoteID:   r.PathValue("id"),
		Amount:    f.Amount("amount"),
		Currency:  core.Currency(f.Text("currency")),
		Method:    core.PaymentMethod(f.Text("method")),
		Reference: f.Text("reference"),
		Notes:     f.Text("notes"),
	}
	paidAt := f.Date("paid_at")
	if err := f.Err(); err != nil {
		s.fail(w, r, err)
		return
	}
	if paidAt != nil {
		pay.PaidAt = *paidAt
	} else {
		pay.PaidAt = s.now().UTC()
	}
	q, err := s.planner.CreatePayment(r.Context(), c.Couple.ID, pay)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityPayment, amqp.OpCreate,
		"Payment recorded. Outstanding: "+core.FormatCurrency(q.OutstandingBalance, q.Currency),
		"/dashboard/suppliers/"+q.SupplierID)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request, c session) {
	q, err := s.planner.DeletePayment(r.Context(), c.Couple.ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(w, r, amqp.EntityPayment, amqp.OpDelete, "Payment removed", "/dashboard/suppliers/"+q.SupplierID)
}
