package worker

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"roora/internal/amqp"
	"roora/internal/core"
	"roora/internal/log"
	"roora/internal/sheets"
	"roora/internal/sheets/memory"
	"roora/internal/storage"
)

var quietLogger = log.New(log.Config{Output: io.Discard, Format: "text"})

type fixture struct {
	repo     *storage.SQLiteRepository
	couple   core.Couple
	event    core.Event
	supplier core.Supplier
	quote    core.Quote
	task     core.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "roora.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	f := &fixture{repo: repo}
	user := &core.User{Email: "lerato@example.com", DisplayName: "Lerato", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	f.couple = core.Couple{Name: "Lerato & Kabelo", PrimaryCurrency: core.ZAR, InviteCode: "ABCD1234"}
	if err := repo.CreateCouple(ctx, &f.couple, &core.Membership{UserID: user.ID, Role: core.RoleBride}); err != nil {
		t.Fatalf("create couple: %v", err)
	}
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	f.event = core.Event{CoupleID: f.couple.ID, Name: "Lobola", Type: core.EventLobola, Date: &date, Currency: core.ZAR}
	if err := repo.CreateEvent(ctx, &f.event, nil); err != nil {
		t.Fatalf("create event: %v", err)
	}
	f.supplier = core.Supplier{EventID: f.event.ID, Name: "Mama's Kitchen", Category: "Catering", Status: core.SupplierBooked}
	if err := repo.CreateSupplier(ctx, f.couple.ID, &f.supplier); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	due := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	f.quote = core.Quote{SupplierID: f.supplier.ID, Amount: core.Money{Cents: 500000}, Currency: core.ZAR, DueDate: &due}
	if err := repo.CreateQuote(ctx, f.couple.ID, &f.quote); err != nil {
		t.Fatalf("create quote: %v", err)
	}
	f.task = core.Task{EventID: f.event.ID, Title: "Book negotiators", DueDate: &due, Status: core.TaskPending}
	if err := repo.CreateTask(ctx, f.couple.ID, &f.task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return f
}

type outcomeCounter struct{ ok, failed int }

func (o *outcomeCounter) WorkerProcessed(ok bool) {
	if ok {
		o.ok++
	} else {
		o.failed++
	}
}

func TestHandleChangeExportsBudget(t *testing.T) {
	f := newFixture(t)
	store := memory.New()
	outcomes := &outcomeCounter{}
	w := NewChangeWorker(f.repo, store, outcomes, quietLogger)

	msg := amqp.NewChangeMessage(f.couple.ID, amqp.EntityQuote, f.quote.ID, amqp.OpCreate, "Quote added")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}

	if store.Exports() != 1 {
		t.Fatalf("exports = %d, want 1", store.Exports())
	}
	sheet, ok := store.Sheet(sheets.SheetName(f.couple.ID))
	if !ok {
		t.Fatal("budget sheet not exported")
	}
	if len(sheet.Rows) < 2 || sheet.Rows[1][1] != "Mama's Kitchen" {
		t.Errorf("unexpected rows %v", sheet.Rows)
	}

	feed, err := f.repo.ListActivities(context.Background(), f.couple.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 || feed[0].Kind != "change" || feed[0].Summary != "Quote added" {
		t.Errorf("feed = %+v", feed)
	}
	if outcomes.ok != 1 || outcomes.failed != 0 {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestHandleChangeRedeliveryKeepsOneFeedEntry(t *testing.T) {
	f := newFixture(t)
	w := NewChangeWorker(f.repo, nil, nil, quietLogger)

	msg := amqp.NewChangeMessage(f.couple.ID, amqp.EntityTask, f.task.ID, amqp.OpUpdate, "Task updated")
	for i := 0; i < 2; i++ {
		if err := w.HandleChange(context.Background(), msg); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	feed, err := f.repo.ListActivities(context.Background(), f.couple.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 {
		t.Errorf("feed has %d entries, want 1", len(feed))
	}
}

func TestHandleChangeSkipsExportForTasks(t *testing.T) {
	f := newFixture(t)
	store := memory.New()
	w := NewChangeWorker(f.repo, store, nil, quietLogger)

	msg := amqp.NewChangeMessage(f.couple.ID, amqp.EntityTask, f.task.ID, amqp.OpCreate, "Task added")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if store.Exports() != 0 {
		t.Errorf("exports = %d, want 0", store.Exports())
	}
}

type failingExporter struct{}

func (failingExporter) ExportBudget(context.Context, sheets.Sheet) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleChangeExportFailure(t *testing.T) {
	f := newFixture(t)
	outcomes := &outcomeCounter{}
	w := NewChangeWorker(f.repo, failingExporter{}, outcomes, quietLogger)

	msg := amqp.NewChangeMessage(f.couple.ID, amqp.EntityPayment, "p1", amqp.OpCreate, "Paid")
	err := w.HandleChange(context.Background(), msg)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v, want export failure", err)
	}
	if outcomes.failed != 1 {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestRecordOverdueOncePerDay(t *testing.T) {
	f := newFixture(t)
	w := NewChangeWorker(f.repo, nil, nil, quietLogger)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	added, err := w.RecordOverdue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want task and quote", added)
	}
	added, err = w.RecordOverdue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("second scan added %d, want 0", added)
	}

	w.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	if added, _ = w.RecordOverdue(context.Background()); added != 2 {
		t.Errorf("next day added %d, want 2", added)
	}

	feed, err := f.repo.ListActivities(context.Background(), f.couple.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range feed {
		if a.Kind != "overdue" {
			t.Errorf("unexpected activity kind %q", a.Kind)
		}
	}
}

func TestStartupExport(t *testing.T) {
	f := newFixture(t)
	store := memory.New()
	w := NewChangeWorker(f.repo, store, nil, quietLogger)
	if err := w.StartupExport(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.Exports() != 1 {
		t.Errorf("exports = %d, want 1", store.Exports())
	}
}

func TestScheduler(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	ran := make(chan struct{}, 8)
	s := NewScheduler(10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, quietLogger)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
	if runs.Load() < 2 {
		t.Errorf("runs = %d", runs.Load())
	}
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	s := NewScheduler(0, func(context.Context) error { return nil }, quietLogger)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
