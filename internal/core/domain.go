package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	RoleBride   MemberRole = "bride"
	RoleGroom   MemberRole = "groom"
	RolePlanner MemberRole = "planner"
	RoleFamily  MemberRole = "family"
)

const (
	EventWhiteWedding EventType = "white_wedding"
	EventLobola       EventType = "lobola"
	EventTraditional  EventType = "traditional"
	EventKitchenParty EventType = "kitchen_party"
	EventUmembeso     EventType = "umembeso"
	EventUmabo        EventType = "umabo"
	EventKurovaGuva   EventType = "kurova_guva"
	EventEngagement   EventType = "engagement"
	EventOther        EventType = "other"
)

const (
	SupplierResearching SupplierStatus = "researching"
	SupplierContacted   SupplierStatus = "contacted"
	SupplierQuoted      SupplierStatus = "quoted"
	SupplierNegotiating SupplierStatus = "negotiating"
	SupplierBooked      SupplierStatus = "booked"
	SupplierRejected    SupplierStatus = "rejected"
)

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentCard         PaymentMethod = "card"
	PaymentOther        PaymentMethod = "other"
)

// DefaultCategory is used for suppliers saved without a category.
const DefaultCategory = "Other"

// SupplierCategories is the fixed list offered by the supplier forms.
var SupplierCategories = []string{
	"Venue",
	"Catering",
	"Photography",
	"Videography",
	"Flowers & Decor",
	"Traditional Attire",
	"Wedding Dress",
	"Suits",
	"Music & DJ",
	"Traditional Brewer",
	"Tent & Furniture Hire",
	"Transport",
	"Hair & Makeup",
	"Wedding Cake",
	"Stationery",
	"MC / Host",
	"Sound & Lighting",
	"Security",
	"Other",
}

type (
	MemberRole     string
	EventType      string
	SupplierStatus string
	TaskStatus     string
	PaymentMethod  string

	User struct {
		ID           string
		Email        string
		DisplayName  string
		PasswordHash string
		CreatedAt    time.Time
	}

	Profile struct {
		ID          string
		DisplayName string
		AvatarURL   string
	}

	// Couple is the tenant record. Everything else hangs off it.
	Couple struct {
		ID              string
		Name            string
		PrimaryCurrency Currency
		TotalBudget     Money
		InviteCode      string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	Membership struct {
		ID        string
		CoupleID  string
		UserID    string
		Role      MemberRole
		CreatedAt time.Time
	}

	// Member is a membership joined with the member's profile.
	Member struct {
		Membership
		DisplayName string
		Email       string
	}

	Event struct {
		ID        string
		CoupleID  string
		Name      string
		Type      EventType
		Date      *time.Time
		Location  string
		Currency  Currency
		Budget    Money
		Notes     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Supplier struct {
		ID             string
		EventID        string
		Name           string
		Category       string
		ContactName    string
		Phone          string
		WhatsAppNumber string
		SocialMedia    string
		Email          string
		Notes          string
		Status         SupplierStatus
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Quote struct {
		ID                 string
		SupplierID         string
		Amount             Money
		Currency           Currency
		DepositRequired    Money
		DepositPaid        Money
		OutstandingBalance Money
		DueDate            *time.Time
		QuoteFileURL       string
		Notes              string
		IsAccepted         bool
		CreatedAt          time.Time
		UpdatedAt          time.Time
	}

	Payment struct {
		ID        string
		QuoteID   string
		Amount    Money
		Currency  Currency
		PaidAt    time.Time
		Method    PaymentMethod
		Reference string
		Notes     string
		CreatedAt time.Time
	}

	Task struct {
		ID          string
		EventID     string
		Title       string
		Description string
		DueDate     *time.Time
		Status      TaskStatus
		AssignedTo  string
		IsMilestone bool
		SortOrder   int
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	InspirationPhoto struct {
		ID        string
		CoupleID  string
		FileURL   string
		FilePath  string
		Caption   string
		CreatedAt time.Time
	}

	// Activity is one entry of the couple's change feed.
	Activity struct {
		ID        string
		CoupleID  string
		Kind      string
		Entity    string
		EntityID  string
		Summary   string
		CreatedAt time.Time
	}
)

// Read models assembled by storage.
type (
	QuoteWithPayments struct {
		Quote
		Payments []Payment
	}

	SupplierWithQuotes struct {
		Supplier
		Quotes    []Quote
		EventName string
		EventType EventType
	}

	SupplierDetail struct {
		Supplier
		Event  Event
		Quotes []QuoteWithPayments
	}

	TaskWithEvent struct {
		Task
		EventName    string
		AssigneeName string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("name is required")
	ErrEmptyTitle      = errors.New("title is required")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrInvalidRole     = errors.New("invalid member role")
	ErrInvalidType     = errors.New("invalid event type")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrNegativeBudget  = errors.New("Budget must be a positive number")
	ErrDepositTooLarge = errors.New("deposit required cannot exceed the quoted amount")
	ErrInvalidDate     = errors.New("invalid date")
)

// ValidationError marks errors whose message is safe to show to the user.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err came from entity validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var eventTypeLabels = map[EventType]string{
	EventWhiteWedding: "White Wedding",
	EventLobola:       "Lobola Ceremony",
	EventTraditional:  "Traditional Wedding",
	EventKitchenParty: "Kitchen Party",
	EventUmembeso:     "Umembeso",
	EventUmabo:        "Umabo",
	EventKurovaGuva:   "Kurova Guva",
	EventEngagement:   "Engagement Party",
	EventOther:        "Other",
}

// EventTypes lists event types in form order.
var EventTypes = []EventType{
	EventWhiteWedding, EventLobola, EventTraditional, EventKitchenParty,
	EventUmembeso, EventUmabo, EventKurovaGuva, EventEngagement, EventOther,
}

func (t EventType) Valid() bool {
	_, ok := eventTypeLabels[t]
	return ok
}

func (t EventType) Label() string {
	if l, ok := eventTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

var supplierStatusLabels = map[SupplierStatus]string{
	SupplierResearching: "Researching",
	SupplierContacted:   "Contacted",
	SupplierQuoted:      "Quoted",
	SupplierNegotiating: "Negotiating",
	SupplierBooked:      "Booked",
	SupplierRejected:    "Rejected",
}

// SupplierStatuses lists statuses in pipeline order.
var SupplierStatuses = []SupplierStatus{
	SupplierResearching, SupplierContacted, SupplierQuoted,
	SupplierNegotiating, SupplierBooked, SupplierRejected,
}

func (s SupplierStatus) Valid() bool {
	_, ok := supplierStatusLabels[s]
	return ok
}

func (s SupplierStatus) Label() string {
	if l, ok := supplierStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

func (s TaskStatus) Label() string {
	switch s {
	case TaskPending:
		return "Pending"
	case TaskInProgress:
		return "In progress"
	case TaskCompleted:
		return "Completed"
	}
	return string(s)
}

var MemberRoles = []MemberRole{RoleBride, RoleGroom, RolePlanner, RoleFamily}

func (r MemberRole) Label() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func (r MemberRole) Valid() bool {
	switch r {
	case RoleBride, RoleGroom, RolePlanner, RoleFamily:
		return true
	}
	return false
}

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentBankTransfer, PaymentMobileMoney, PaymentCard, PaymentOther}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentMobileMoney, PaymentCard, PaymentOther:
		return true
	}
	return false
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Cash"
	case PaymentBankTransfer:
		return "Bank transfer"
	case PaymentMobileMoney:
		return "Mobile money"
	case PaymentCard:
		return "Card"
	case PaymentOther:
		return "Other"
	}
	return string(m)
}

func validateName(field, v string, empty error) error {
	if strings.TrimSpace(v) == "" {
		return invalid(field, empty)
	}
	if len(v) > 200 {
		return invalid(field, ErrNameTooLong)
	}
	return nil
}

func validateEmail(v string) error {
	if v == "" {
		return nil
	}
	if _, err := mail.ParseAddress(v); err != nil {
		return invalid("email", ErrInvalidEmail)
	}
	return nil
}

func (c Couple) Validate() error {
	if err := validateName("name", c.Name, ErrEmptyName); err != nil {
		return err
	}
	if !c.PrimaryCurrency.Valid() {
		return invalid("currency", ErrInvalidCurrency)
	}
	if c.TotalBudget.Cents < 0 {
		return invalid("", ErrNegativeBudget)
	}
	return nil
}

func (e Event) Validate() error {
	if err := validateName("name", e.Name, ErrEmptyName); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if !e.Currency.Valid() {
		return invalid("currency", ErrInvalidCurrency)
	}
	if e.Budget.Cents < 0 {
		return invalid("budget", ErrInvalidAmount)
	}
	return nil
}

func (s Supplier) Validate() error {
	if err := validateName("name", s.Name, ErrEmptyName); err != nil {
		return err
	}
	if !s.Status.Valid() {
		return invalid("status", ErrInvalidStatus)
	}
	return validateEmail(s.Email)
}

func (q Quote) Validate() error {
	if err := q.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !q.Currency.Valid() {
		return invalid("currency", ErrInvalidCurrency)
	}
	if q.DepositRequired.Cents < 0 || q.DepositPaid.Cents < 0 {
		return invalid("deposit", ErrInvalidAmount)
	}
	if q.DepositRequired.Cents > q.Amount.Cents {
		return invalid("deposit", ErrDepositTooLarge)
	}
	return nil
}

// Settle keeps outstanding_balance = amount - deposit_paid. Overpayment
// yields a negative balance.
func (q *Quote) Settle() {
	q.OutstandingBalance = q.Amount.Sub(q.DepositPaid)
}

// ApplyPayments sets deposit_paid to the sum of the given payments.
func (q *Quote) ApplyPayments(payments []Payment) {
	var total Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	q.DepositPaid = total
	q.Settle()
}

func (p Payment) Validate() error {
	if err := p.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !p.Currency.Valid() {
		return invalid("currency", ErrInvalidCurrency)
	}
	if !p.Method.Valid() {
		return invalid("method", ErrInvalidMethod)
	}
	return nil
}

func (t Task) Validate() error {
	if err := validateName("title", t.Title, ErrEmptyTitle); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return invalid("status", ErrInvalidStatus)
	}
	return nil
}

func (m Membership) Validate() error {
	if !m.Role.Valid() {
		return invalid("role", ErrInvalidRole)
	}
	return nil
}

// IsOverdue reports whether the task has a due date before now and is open.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != TaskCompleted && t.DueDate.Before(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
