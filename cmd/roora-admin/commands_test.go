package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roora/internal/core"
	"roora/internal/services"
	"roora/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roora.db")
	t.Setenv("SQLITE_DB_PATH", path)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
	return path
}

// seedCouple creates a couple with an overdue task and an unpaid quote.
func seedCouple(t *testing.T, path, userID string) core.Couple {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	p := services.NewPlanner(repo, services.Options{})
	c, err := p.CreateWedding(ctx, userID, "Thandi and Sipho", core.RoleBride, core.ZAR)
	if err != nil {
		t.Fatal(err)
	}
	e, err := p.CreateEvent(ctx, c, core.Event{Name: "Lobola", Type: core.EventLobola}, false)
	if err != nil {
		t.Fatal(err)
	}
	s, err := p.CreateSupplier(ctx, c.ID, core.Supplier{EventID: e.ID, Name: "Soweto Tents", Category: "Tent & Furniture Hire"})
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().UTC().AddDate(0, 0, -3)
	if _, err := p.CreateQuote(ctx, c.ID, core.Quote{SupplierID: s.ID, Amount: core.Money{Cents: 250000}, DueDate: &past}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.CreateTask(ctx, c.ID, core.Task{EventID: e.ID, Title: "Confirm the negotiators", DueDate: &past}); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestMigrate(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "schema version 2 (dirty=false)") {
		t.Errorf("output = %q", out)
	}
}

func TestCreateUser(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "create-user", "--email", "Thandi@Example.com", "--password", "long-enough")
	if err != nil {
		t.Fatalf("create-user: %v", err)
	}
	if !strings.Contains(out, "<thandi@example.com>") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "create-user", "--email", "thandi@example.com", "--password", "long-enough"); err == nil {
		t.Error("duplicate email should fail")
	}
	if _, err := run(t, "create-user", "--email", "sipho@example.com", "--password", "short"); err == nil {
		t.Error("short password should fail")
	}
	if _, err := run(t, "create-user", "--email", "sipho@example.com"); err == nil {
		t.Error("missing --password should fail")
	}
}

func TestExportBudgetPrintsTSV(t *testing.T) {
	path := setupEnv(t)
	out, err := run(t, "create-user", "--email", "thandi@example.com", "--password", "long-enough")
	if err != nil {
		t.Fatal(err)
	}
	userID := strings.Fields(out)[2]
	c := seedCouple(t, path, userID)

	out, err = run(t, "export-budget", "--couple", c.ID)
	if err != nil {
		t.Fatalf("export-budget: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected header, quote and totals rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "Event\tSupplier\tCategory") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(out, "Soweto Tents") || !strings.Contains(out, "2500.00") {
		t.Errorf("quote row missing from %q", out)
	}

	if _, err := run(t, "export-budget", "--couple", "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown couple err = %v", err)
	}
}

func TestScanOverdue(t *testing.T) {
	path := setupEnv(t)
	out, err := run(t, "create-user", "--email", "thandi@example.com", "--password", "long-enough")
	if err != nil {
		t.Fatal(err)
	}
	seedCouple(t, path, strings.Fields(out)[2])

	out, err = run(t, "scan-overdue")
	if err != nil {
		t.Fatalf("scan-overdue: %v", err)
	}
	if !strings.Contains(out, "Confirm the negotiators") || !strings.Contains(out, "Soweto Tents") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "1 overdue tasks, 1 overdue quotes") {
		t.Errorf("summary missing from %q", out)
	}

	out, err = run(t, "scan-overdue", "--record")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "recorded 2 new activity entries") {
		t.Errorf("first record = %q", out)
	}
	out, err = run(t, "scan-overdue", "--record")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "recorded 0 new activity entries") {
		t.Errorf("second record = %q", out)
	}
}
