// Package scheduler is the Scheduler (C6): triggering automatic list
// refreshes on their configured cron schedule, serializing runs per list,
// and dropping a fire whose scheduled time is older than the misfire
// grace window. Fire times missed while the process was not running are
// not replayed on restart.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/importer"
	"github.com/listforge/listforge/internal/model"
	"github.com/listforge/listforge/internal/storage"
)

// Runner is the subset of *importer.Importer the scheduler depends on,
// so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, listID int64, force bool) importer.ImportResult
}

// Scheduler owns one cron.Cron instance and a per-list entry/mutex map.
// It never cancels an in-flight run: rescheduling a list removes and
// re-adds its cron entry, it does not touch a run already executing.
type Scheduler struct {
	cron *cron.Cron
	run  Runner
	log  *zap.SugaredLogger
	pool chan struct{} // bounded worker pool

	misfireGrace time.Duration

	mu       sync.Mutex
	entries  map[int64]cron.EntryID
	runLocks map[int64]*sync.Mutex
}

// New builds a Scheduler in the given IANA location (e.g. Europe/Paris),
// with a bounded worker pool and misfire grace window.
func New(location *time.Location, poolSize int, misfireGrace time.Duration, run Runner, log *zap.SugaredLogger) *Scheduler {
	if poolSize <= 0 {
		poolSize = 20
	}
	c := cron.New(cron.WithLocation(location), cron.WithSeconds())
	return &Scheduler{
		cron:         c,
		run:          run,
		log:          log,
		pool:         make(chan struct{}, poolSize),
		misfireGrace: misfireGrace,
		entries:      map[int64]cron.EntryID{},
		runLocks:     map[int64]*sync.Mutex{},
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for in-flight jobs to finish, then halts the cron loop.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	// Every scheduled run holds a pool slot while it executes, so holding
	// all slots means none is still running.
	for i := 0; i < cap(s.pool); i++ {
		select {
		case s.pool <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// LoadAll (re)builds cron entries for every active, automatic list.
func (s *Scheduler) LoadAll(ctx context.Context, store *storage.Store) error {
	lists, err := store.ListLists(ctx, storage.ListFilter{ActiveOnly: true, AutomaticOnly: true})
	if err != nil {
		return fmt.Errorf("scheduler: load lists: %w", err)
	}
	for _, l := range lists {
		if err := s.Reschedule(l); err != nil {
			s.logf("scheduler: list %d: %v", l.ID, err)
		}
	}
	return nil
}

// Reschedule (re)installs the cron entry for l: manual or inactive lists
// have their entry removed; automatic+active lists get their schedule
// parsed and a fresh entry added. It never touches a run in progress.
func (s *Scheduler) Reschedule(l model.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[l.ID]; ok {
		s.cron.Remove(id)
		delete(s.entries, l.ID)
	}

	if l.UpdateType != model.UpdateAutomatic || !l.IsActive {
		return nil
	}
	if l.UpdateSchedule == "" {
		return fmt.Errorf("automatic list %d has no update_schedule", l.ID)
	}

	listID := l.ID
	entryID, err := s.cron.AddFunc(l.UpdateSchedule, func() {
		s.trigger(listID, time.Now())
	})
	if err != nil {
		return fmt.Errorf("parse cron schedule %q: %w", l.UpdateSchedule, err)
	}
	s.entries[l.ID] = entryID
	if _, ok := s.runLocks[l.ID]; !ok {
		s.runLocks[l.ID] = &sync.Mutex{}
	}
	return nil
}

// Remove drops a list's cron entry entirely (list deleted or set manual).
func (s *Scheduler) Remove(listID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[listID]; ok {
		s.cron.Remove(id)
		delete(s.entries, listID)
	}
}

// trigger fires a scheduled run, skipping it if the previous run for this
// list is still executing (serialization) and dropping it if the fire
// time is older than the misfire grace window. Cron entries pass the
// current time as the fire time. The run waits for a free worker pool
// slot before it starts.
func (s *Scheduler) trigger(listID int64, scheduledAt time.Time) {
	if time.Since(scheduledAt) > s.misfireGrace {
		s.logf("scheduler: list %d: dropping misfired run, %s stale", listID, time.Since(scheduledAt))
		return
	}

	s.mu.Lock()
	lock, ok := s.runLocks[listID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if !lock.TryLock() {
		s.logf("scheduler: list %d: previous run still in progress, skipping", listID)
		return
	}

	go func() {
		defer lock.Unlock()
		// pool saturated: wait for a slot rather than drop a scheduled
		// refresh.
		s.pool <- struct{}{}
		defer func() { <-s.pool }()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		result := s.run.Run(ctx, listID, false)
		s.logf("scheduler: list %d: %s", listID, result)
	}()
}

// TriggerNow runs listID immediately, serialized against any scheduled
// run for the same list, used by the manual "update now" admin action.
func (s *Scheduler) TriggerNow(ctx context.Context, listID int64) importer.ImportResult {
	s.mu.Lock()
	lock, ok := s.runLocks[listID]
	if !ok {
		lock = &sync.Mutex{}
		s.runLocks[listID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return s.run.Run(ctx, listID, true)
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Infof(format, args...)
	}
}
