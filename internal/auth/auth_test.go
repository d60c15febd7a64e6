package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"roora/internal/core"
	"roora/internal/storage"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*core.User
	count int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*core.User{}} }

func (m *memUsers) CreateUser(_ context.Context, u *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return storage.ErrConflict
		}
	}
	m.count++
	u.ID = "u" + string(rune('0'+m.count))
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func newTestAuthenticator() *PasswordAuthenticator {
	a := NewPasswordAuthenticator(newMemUsers())
	a.cost = bcrypt.MinCost
	return a
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator()

	if _, err := a.Register(ctx, "bride@example.com", "", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if _, err := a.Register(ctx, "not-an-email", "", "longenough"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got %v", err)
	}

	u, err := a.Register(ctx, "Bride@Example.com", "", "longenough")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.DisplayName != "bride" || u.PasswordHash == "longenough" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := a.Register(ctx, "bride@example.com", "", "longenough"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected email exists, got %v", err)
	}

	if _, err := a.Authenticate(ctx, "bride@example.com", "longenough"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := a.Authenticate(ctx, "bride@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

// memCodes is an in-memory CodeStore.
type memCodes struct {
	mu   sync.Mutex
	used map[string]string
}

func newMemCodes() *memCodes { return &memCodes{used: map[string]string{}} }

func (m *memCodes) ConsumeLoginCode(_ context.Context, id, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.used[id]; ok {
		return storage.ErrConflict
	}
	m.used[id] = userID
	return nil
}

func TestSessionTokens(t *testing.T) {
	m := NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour, 15*time.Minute, newMemCodes())
	ctx := context.Background()
	user := &core.User{ID: "u1", Email: "a@example.com"}

	session, err := m.Issue(user)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.Validate(session)
	if err != nil || claims.UserID != "u1" {
		t.Fatalf("validate: %v %+v", err, claims)
	}
	if _, err := m.ExchangeLoginCode(ctx, session); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("session accepted as login code: %v", err)
	}

	code, err := m.IssueLoginCode(user)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Validate(code); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("login code accepted as session: %v", err)
	}
	if _, err := m.ExchangeLoginCode(ctx, code); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	other := NewSessionManager("another-secret-another-secret-xx", time.Hour, time.Minute, nil)
	if _, err := other.Validate(session); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token accepted with wrong secret: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Validate(session); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
	if _, err := m.Validate(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestLoginCodesAreSingleUse(t *testing.T) {
	codes := newMemCodes()
	m := NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour, 15*time.Minute, codes)
	ctx := context.Background()
	user := &core.User{ID: "u1", Email: "a@example.com"}

	first, err := m.IssueLoginCode(user)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.IssueLoginCode(user)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.ExchangeLoginCode(ctx, first)
	if err != nil || claims.UserID != "u1" || claims.ID == "" {
		t.Fatalf("first exchange: %v %+v", err, claims)
	}
	for i := 0; i < 2; i++ {
		if _, err := m.ExchangeLoginCode(ctx, first); !errors.Is(err, ErrCodeUsed) {
			t.Fatalf("replay %d: want ErrCodeUsed, got %v", i+1, err)
		}
	}
	if _, err := m.ExchangeLoginCode(ctx, second); err != nil {
		t.Fatalf("a fresh code should still work: %v", err)
	}
	if codes.used[claims.ID] != "u1" {
		t.Fatalf("redeemed code not recorded for the user: %v", codes.used)
	}

	noStore := NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour, 15*time.Minute, nil)
	third, _ := noStore.IssueLoginCode(user)
	if _, err := noStore.ExchangeLoginCode(ctx, third); err == nil {
		t.Fatal("exchange without a code store should fail")
	}
}

func TestRequireUser(t *testing.T) {
	m := NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour, time.Minute, nil)
	h := m.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/budget", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/auth/login?next=%2Fdashboard%2Fbudget" {
		t.Fatalf("unexpected redirect: %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/dashboard/events", nil)
	req.Header.Set("HX-Request", "true")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || rr.Header().Get("HX-Redirect") == "" {
		t.Fatalf("unexpected htmx response: %d", rr.Code)
	}

	token, _ := m.Issue(&core.User{ID: "u9", Email: "x@example.com"})
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "u9" {
		t.Fatalf("authenticated request failed: %d %q", rr.Code, rr.Body.String())
	}
}

func TestCookies(t *testing.T) {
	rr := httptest.NewRecorder()
	Cookies{Secure: true}.Set(rr, "tok", time.Hour)
	c := rr.Result().Cookies()[0]
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 3600 {
		t.Fatalf("unexpected cookie: %+v", c)
	}
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                     "/dashboard",
		"/dashboard/budget":    "/dashboard/budget",
		"/dashboard?tab=x":     "/dashboard?tab=x",
		"https://evil.example": "/dashboard",
		"//evil.example/path":  "/dashboard",
		`/\evil.example`:       "/dashboard",
		"dashboard":            "/dashboard",
	}
	for in, want := range cases {
		if got := SafeNext(in, "/dashboard"); got != want {
			t.Fatalf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
