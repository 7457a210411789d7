package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/stwalsh4118/sitetrack/internal/config"
	"github.com/stwalsh4118/sitetrack/internal/logger"
)

// Registry owns the live workspaces and evicts idle ones.
type Registry struct {
	deps      Deps
	idle      time.Duration
	sweep     time.Duration
	scheduler *gocron.Scheduler
	now       func() time.Time
	log       *logger.Logger

	mu         sync.RWMutex
	workspaces map[uuid.UUID]*Workspace
	running    bool
}

// NewRegistry creates an empty registry. Call Start to run the idle sweeper.
func NewRegistry(deps Deps, cfg config.SessionConfig, log *logger.Logger) *Registry {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	return &Registry{
		deps:       deps,
		idle:       cfg.IdleTimeout,
		sweep:      cfg.SweepInterval,
		scheduler:  scheduler,
		now:        time.Now,
		log:        log,
		workspaces: make(map[uuid.UUID]*Workspace),
	}
}

// Start schedules the idle sweep.
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	if _, err := r.scheduler.Every(r.sweep).Do(func() { r.Sweep() }); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	r.scheduler.StartAsync()
	r.running = true

	r.log.Info("Session sweeper started", map[string]interface{}{
		"idle_timeout":   r.idle.String(),
		"sweep_interval": r.sweep.String(),
	})
	return nil
}

// Create opens a workspace for projectID.
func (r *Registry) Create(ctx context.Context, projectID uuid.UUID) (*Workspace, error) {
	w, err := NewWorkspace(ctx, projectID, r.deps, r.log)
	if err != nil {
		return nil, err
	}
	w.Touch(r.now())

	r.mu.Lock()
	r.workspaces[w.ID] = w
	r.mu.Unlock()
	return w, nil
}

// Get returns a workspace and records activity on it.
func (r *Registry) Get(id uuid.UUID) (*Workspace, error) {
	r.mu.RLock()
	w, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.Touch(r.now())
	return w, nil
}

// Close removes and closes a workspace.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.Close()
	return nil
}

// Sweep closes workspaces idle for longer than the idle timeout and
// returns how many were closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []*Workspace
	for id, w := range r.workspaces {
		if w.LastSeen().Before(cutoff) {
			expired = append(expired, w)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range expired {
		w.Close()
	}
	if len(expired) > 0 {
		r.log.Info("Idle sessions evicted", map[string]interface{}{
			"count": len(expired),
		})
	}
	return len(expired)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}

// Shutdown stops the sweeper and closes every workspace.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.running {
		r.scheduler.Stop()
		r.running = false
	}
	all := r.workspaces
	r.workspaces = make(map[uuid.UUID]*Workspace)
	r.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
	r.log.Info("Sessions shut down", map[string]interface{}{"count": len(all)})
}
