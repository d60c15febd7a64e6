package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"roora/internal/cache"
	"roora/internal/core"
)

// recentActivities is how many feed entries the dashboard shows.
const recentActivities = 10

// BudgetOverview returns the couple's budget page figures, cached until the
// next write to the couple or the cache TTL.
func (p *Planner) BudgetOverview(ctx context.Context, couple core.Couple) (core.BudgetOverview, error) {
	if o, ok := p.budgets.Get(couple.ID); ok {
		return o, nil
	}
	gen := p.generation(couple.ID)

	var (
		events    []core.Event
		suppliers []core.SupplierWithQuotes
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = p.repo.ListEvents(gctx, couple.ID)
		return err
	})
	g.Go(func() (err error) {
		suppliers, err = p.repo.ListSuppliers(gctx, couple.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.BudgetOverview{}, fmt.Errorf("load budget: %w", err)
	}

	o := core.NewBudgetOverview(couple, events, suppliers)
	setIfCurrent(p, p.budgets, couple.ID, gen, o)
	return o, nil
}

// Dashboard returns the dashboard figures, cached like BudgetOverview. The
// activity feed is read on every call: the worker appends to it without
// going through this process's caches.
func (p *Planner) Dashboard(ctx context.Context, couple core.Couple) (core.DashboardStats, error) {
	st, err := p.dashboardStats(ctx, couple)
	if err != nil {
		return core.DashboardStats{}, err
	}
	activities, err := p.repo.ListActivities(ctx, couple.ID, recentActivities)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("load activity: %w", err)
	}
	st.RecentActivities = activities
	return st, nil
}

func (p *Planner) dashboardStats(ctx context.Context, couple core.Couple) (core.DashboardStats, error) {
	if st, ok := p.dashboards.Get(couple.ID); ok {
		return st, nil
	}
	gen := p.generation(couple.ID)

	var (
		events    []core.Event
		suppliers []core.SupplierWithQuotes
		tasks     []core.TaskWithEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = p.repo.ListEvents(gctx, couple.ID)
		return err
	})
	g.Go(func() (err error) {
		suppliers, err = p.repo.ListSuppliers(gctx, couple.ID)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = p.repo.ListTasks(gctx, couple.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, fmt.Errorf("load dashboard: %w", err)
	}

	st := core.NewDashboardStats(couple, events, suppliers, tasks, p.now())
	setIfCurrent(p, p.dashboards, couple.ID, gen, st)
	return st, nil
}

// InvalidateCouple drops the couple's cached read models and bumps its
// generation so loads already in flight are not cached.
func (p *Planner) InvalidateCouple(coupleID string) {
	p.genMu.Lock()
	p.generations[coupleID]++
	p.budgets.Delete(coupleID)
	p.dashboards.Delete(coupleID)
	p.genMu.Unlock()
}

func (p *Planner) generation(coupleID string) uint64 {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.generations[coupleID]
}

// setIfCurrent caches v unless the couple was invalidated after gen was
// read.
func setIfCurrent[T any](p *Planner, c *cache.LRUCache[T], coupleID string, gen uint64, v T) bool {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	if p.generations[coupleID] != gen {
		return false
	}
	c.Set(coupleID, v)
	return true
}
