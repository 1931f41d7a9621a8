package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/markdave123-py/pdfchat/internal/core/events"
	"github.com/markdave123-py/pdfchat/internal/models"
)

const registryModule = "REGISTRY"

// CreateOptions customises a single session at creation time.
type CreateOptions struct {
	Name    string
	Timeout time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator replaces the default session id generator.
func WithIDGenerator(fn func(now time.Time) string) RegistryOption {
	return func(r *Registry) {
		r.newID = fn
	}
}

// Registry indexes live sessions by id. Entries never expire on their own;
// idle sessions are removed by SweepExpired, which Run calls periodically.
type Registry struct {
	sessions *cache.Cache
	cfg      Config
	deps     Deps
	newID    func(now time.Time) string

	mu     sync.Mutex
	issued map[string]struct{}

	// removeMu makes the presence check and the removal of an id one step.
	removeMu sync.Mutex
}

func NewRegistry(cfg Config, deps Deps, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: cache.New(cache.NoExpiration, 0),
		cfg:      cfg,
		deps:     deps.withDefaults(),
		newID:    defaultID,
		issued:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.sessions.OnEvicted(func(id string, _ interface{}) {
		r.deps.Logger.Info(registryModule, "Session removed", map[string]interface{}{"session_id": id})
		r.deps.Publisher.Publish(context.Background(), events.Event{
			Type:      events.SessionDeleted,
			SessionID: id,
		})
	})
	return r
}

func defaultID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("pdf_chat_%s_%s", now.Format("20060102_150405"), suffix)
}

// Create registers a new active session. Ids are never reused over the
// lifetime of the registry, even after the original session is deleted.
func (r *Registry) Create(ctx context.Context, opts CreateOptions) (*ChatSession, error) {
	cfg := r.cfg
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}

	id, err := r.reserveID()
	if err != nil {
		return nil, err
	}

	s := New(id, strings.TrimSpace(opts.Name), cfg, r.deps)
	if err := r.sessions.Add(id, s, cache.NoExpiration); err != nil {
		return nil, fmt.Errorf("register session %s: %w", id, err)
	}

	r.deps.Logger.Info(registryModule, "Session created", map[string]interface{}{
		"session_id":      id,
		"session_name":    s.Name(),
		"timeout_minutes": cfg.Timeout.Minutes(),
		"active_sessions": r.sessions.ItemCount(),
	})
	r.deps.Publisher.Publish(ctx, events.Event{
		Type:      events.SessionCreated,
		SessionID: id,
		Data: map[string]interface{}{
			"session_name":    s.Name(),
			"timeout_minutes": cfg.Timeout.Minutes(),
		},
	})
	return s, nil
}

func (r *Registry) reserveID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < 16; attempt++ {
		id := r.newID(r.deps.Now())
		if id == "" {
			continue
		}
		if _, taken := r.issued[id]; taken {
			continue
		}
		r.issued[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("could not allocate a unique session id")
}

// Get returns the session with the given id. Expired sessions that have not
// been swept yet are still returned so read-only calls keep working.
func (r *Registry) Get(id string) (*ChatSession, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return v.(*ChatSession), nil
}

// Delete removes a session and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	return r.remove(id)
}

func (r *Registry) remove(id string) bool {
	r.removeMu.Lock()
	defer r.removeMu.Unlock()

	if _, ok := r.sessions.Get(id); !ok {
		return false
	}
	r.sessions.Delete(id)
	return true
}

// ListActive returns summaries of sessions that are not expired, oldest first.
func (r *Registry) ListActive() []models.SessionSummary {
	items := r.sessions.Items()
	out := make([]models.SessionSummary, 0, len(items))
	for _, item := range items {
		s := item.Object.(*ChatSession)
		summary := s.Summary()
		if summary.Status != models.StatusActive {
			continue
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SweepExpired removes every idle session past its timeout and returns how
// many were removed. Sessions in the middle of an operation are skipped and
// picked up by a later sweep.
func (r *Registry) SweepExpired(ctx context.Context) int {
	removed := 0
	for id, item := range r.sessions.Items() {
		s := item.Object.(*ChatSession)
		if !s.tryExpire(ctx) || !r.remove(id) {
			continue
		}
		removed++
	}
	if removed > 0 {
		r.deps.Logger.Info(registryModule, "Expired sessions swept", map[string]interface{}{
			"removed":         removed,
			"active_sessions": r.sessions.ItemCount(),
		})
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.SweepExpired(ctx)
		}
	}
}

// Shutdown drops every session and returns how many were dropped.
func (r *Registry) Shutdown() int {
	cleared := 0
	for id := range r.sessions.Items() {
		if r.remove(id) {
			cleared++
		}
	}
	r.deps.Logger.Info(registryModule, "Registry shut down", map[string]interface{}{"cleared_sessions": cleared})
	return cleared
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}
