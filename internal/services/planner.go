// Package services orchestrates planner writes across SQLite, file storage,
// the read-model caches and AMQP change publication.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"roora/internal/amqp"
	"roora/internal/blob"
	"roora/internal/cache"
	"roora/internal/core"
	"roora/internal/log"
	"roora/internal/storage"
)

var (
	ErrNoCouple      = errors.New("no couple found")
	ErrInvalidInvite = errors.New("Invalid invite code")
	ErrAlreadyMember = errors.New("You are already a member of this wedding")
	ErrHasWedding    = errors.New("You already belong to a wedding")
)

// Publisher sends change messages. *amqp.Client implements it.
type Publisher interface {
	PublishChange(ctx context.Context, msg amqp.ChangeMessage) error
}

// ChangeRecorder counts successful writes and publication outcomes.
// *metrics.Metrics implements it.
type ChangeRecorder interface {
	RecordChange(entity, op string)
	Published(ok bool)
}

type Options struct {
	Publisher Publisher
	Blobs     blob.Store
	Recorder  ChangeRecorder
	CacheSize int
	CacheTTL  time.Duration
	Cache     cache.Recorder
	Logger    *log.Logger
	Now       func() time.Time
}

// Planner is the application service behind every page and form.
type Planner struct {
	repo      *storage.SQLiteRepository
	publisher Publisher
	blobs     blob.Store
	recorder  ChangeRecorder
	logger    *log.Logger
	changes   *log.StructuredLogger

	budgets    *cache.LRUCache[core.BudgetOverview]
	dashboards *cache.LRUCache[core.DashboardStats]

	// generations counts invalidations per couple so a read model loaded
	// before a write is not cached after it.
	genMu       sync.Mutex
	generations map[string]uint64

	now func() time.Time
}

func NewPlanner(repo *storage.SQLiteRepository, opts Options) *Planner {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentPlanner)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Planner{
		repo:        repo,
		publisher:   opts.Publisher,
		blobs:       opts.Blobs,
		recorder:    opts.Recorder,
		logger:      logger,
		changes:     log.NewStructuredLogger(logger),
		budgets:     cache.NewLRUCache[core.BudgetOverview](opts.CacheSize, opts.CacheTTL).Observe("budget", opts.Cache),
		dashboards:  cache.NewLRUCache[core.DashboardStats](opts.CacheSize, opts.CacheTTL).Observe("dashboard", opts.Cache),
		generations: map[string]uint64{},
		now:         now,
	}
}

// Caches exposes the read-model caches so the cleanup manager can sweep
// them.
func (p *Planner) Caches() []cache.Cleaner {
	return []cache.Cleaner{p.budgets, p.dashboards}
}

// changed runs after every successful write: it drops the couple's cached
// read models, counts the write and announces it. Publication failures are
// logged only because the write already happened.
func (p *Planner) changed(ctx context.Context, coupleID, entity, entityID, op, summary string) {
	p.InvalidateCouple(coupleID)
	if p.recorder != nil {
		p.recorder.RecordChange(entity, op)
	}
	p.changes.LogChange(ctx, op, coupleID, entity, entityID)

	if p.publisher == nil {
		p.logger.DebugContext(ctx, "AMQP client not available, skipping change message", "entity", entity)
		return
	}
	msg := amqp.NewChangeMessage(coupleID, entity, entityID, op, summary)
	err := p.publisher.PublishChange(ctx, msg)
	if p.recorder != nil {
		p.recorder.Published(err == nil)
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish change message",
			log.FieldCoupleID, coupleID, log.FieldEntity, entity, log.FieldEntityID, entityID, log.FieldError, err)
	}
}

// CurrentCouple resolves the couple of the user's first membership.
func (p *Planner) CurrentCouple(ctx context.Context, userID string) (core.Couple, core.Membership, error) {
	m, err := p.repo.MembershipForUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Couple{}, core.Membership{}, ErrNoCouple
	}
	if err != nil {
		return core.Couple{}, core.Membership{}, fmt.Errorf("load membership: %w", err)
	}
	c, err := p.repo.GetCouple(ctx, m.CoupleID)
	if err != nil {
		return core.Couple{}, core.Membership{}, fmt.Errorf("load couple: %w", err)
	}
	return c, m, nil
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateWedding creates a couple with the user as its first member.
func (p *Planner) CreateWedding(ctx context.Context, userID, name string, role core.MemberRole, currency core.Currency) (core.Couple, error) {
	if role == "" {
		role = core.RoleBride
	}
	if currency == "" {
		currency = core.DefaultCurrency
	}
	c := core.Couple{Name: strings.TrimSpace(name), PrimaryCurrency: currency}
	if err := c.Validate(); err != nil {
		return core.Couple{}, err
	}
	m := core.Membership{UserID: userID, Role: role}
	if err := m.Validate(); err != nil {
		return core.Couple{}, err
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		c.ID = ""
		c.InviteCode = newInviteCode()
		err = p.repo.CreateCouple(ctx, &c, &m)
		if !errors.Is(err, storage.ErrConflict) {
			break
		}
	}
	if err != nil {
		return core.Couple{}, fmt.Errorf("create couple: %w", err)
	}
	p.changed(ctx, c.ID, amqp.EntityCouple, c.ID, amqp.OpCreate, "Created wedding "+c.Name)
	return c, nil
}

// JoinWedding adds the user to the couple owning the invite code.
func (p *Planner) JoinWedding(ctx context.Context, userID, code string, role core.MemberRole) (core.Couple, error) {
	if role == "" {
		role = core.RolePlanner
	}
	m := core.Membership{UserID: userID, Role: role}
	if err := m.Validate(); err != nil {
		return core.Couple{}, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return core.Couple{}, &core.ValidationError{Field: "invite_code", Err: ErrInvalidInvite}
	}
	c, err := p.repo.GetCoupleByInviteCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Couple{}, &core.ValidationError{Err: ErrInvalidInvite}
	}
	if err != nil {
		return core.Couple{}, fmt.Errorf("find couple: %w", err)
	}
	// A user plans one wedding; a second membership would never be reachable.
	switch cur, err := p.repo.MembershipForUser(ctx, userID); {
	case err == nil && cur.CoupleID == c.ID:
		return core.Couple{}, &core.ValidationError{Err: ErrAlreadyMember}
	case err == nil:
		return core.Couple{}, &core.ValidationError{Err: ErrHasWedding}
	case !errors.Is(err, storage.ErrNotFound):
		return core.Couple{}, fmt.Errorf("load membership: %w", err)
	}
	m.CoupleID = c.ID
	if err := p.repo.AddMembership(ctx, &m); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return core.Couple{}, &core.ValidationError{Err: ErrAlreadyMember}
		}
		return core.Couple{}, err
	}
	p.changed(ctx, c.ID, amqp.EntityCouple, m.ID, amqp.OpUpdate, "A new member joined")
	return c, nil
}

// UpdateBudget sets the couple's planned overall budget.
func (p *Planner) UpdateBudget(ctx context.Context, coupleID string, amount core.Money) error {
	if amount.Cents < 0 {
		return &core.ValidationError{Err: core.ErrNegativeBudget}
	}
	if err := p.repo.UpdateCoupleBudget(ctx, coupleID, amount); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityCouple, coupleID, amqp.OpUpdate, "Updated planned budget")
	return nil
}

func (p *Planner) Members(ctx context.Context, coupleID string) ([]core.Member, error) {
	return p.repo.ListMembers(ctx, coupleID)
}

func (p *Planner) Profile(ctx context.Context, userID string) (core.Profile, error) {
	return p.repo.GetProfile(ctx, userID)
}

func (p *Planner) UpdateDisplayName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &core.ValidationError{Field: "display_name", Err: core.ErrEmptyName}
	}
	return p.repo.UpdateDisplayName(ctx, userID, name)
}

func (p *Planner) Activities(ctx context.Context, coupleID string, limit int) ([]core.Activity, error) {
	return p.repo.ListActivities(ctx, coupleID, limit)
}
