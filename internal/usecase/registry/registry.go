// Package registry keeps the open search sessions of a server, keyed by id.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
	"github.com/kailas-cloud/entrysearch/internal/usecase/dispatch"
	"github.com/kailas-cloud/entrysearch/internal/usecase/session"
)

// Defaults are applied to sessions created without explicit values.
type Defaults struct {
	Blocks   []filter.Block
	Locale   string
	PageSize int
}

// Service owns every open session. Sessions run under the service context,
// not the context of the request that created them.
type Service struct {
	ctx      context.Context
	fetcher  dispatch.Fetcher
	dcfg     dispatch.Config
	defaults Defaults
	metrics  *metrics.Search
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Store
}

// New creates a registry.
func New(
	ctx context.Context, fetcher dispatch.Fetcher, dcfg dispatch.Config,
	defaults Defaults, m *metrics.Search, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ctx:      ctx,
		fetcher:  fetcher,
		dcfg:     dcfg,
		defaults: defaults,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*session.Store),
	}
}

// Create opens a session and dispatches its initial query.
// Zero values in cfg fall back to the registry defaults; a nil Blocks slice uses the default blocks.
func (s *Service) Create(cfg session.Config) (string, *session.Store, error) {
	if cfg.Blocks == nil {
		cfg.Blocks = s.defaults.Blocks
	}
	if cfg.Locale == "" {
		cfg.Locale = s.defaults.Locale
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = s.defaults.PageSize
	}

	st, err := session.Open(s.ctx, cfg, s.fetcher, s.dcfg)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = st
	s.mu.Unlock()

	s.metrics.SessionOpened()
	s.logger.Debug("Session opened", zap.String("session_id", id), zap.Int("blocks", len(cfg.Blocks)))
	return id, st, nil
}

// Get returns an open session.
func (s *Service) Get(id string) (*session.Store, error) {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get session %q: %w", id, domain.ErrSessionNotFound)
	}
	return st, nil
}

// Delete closes and forgets a session.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	st, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("delete session %q: %w", id, domain.ErrSessionNotFound)
	}

	st.Close()
	s.metrics.SessionClosed()
	s.logger.Debug("Session closed", zap.String("session_id", id))
	return nil
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll closes every session. Used on shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	open := s.sessions
	s.sessions = make(map[string]*session.Store)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, st := range open {
		st := st
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Close()
		}()
		s.metrics.SessionClosed()
	}
	wg.Wait()

	if len(open) > 0 {
		s.logger.Info("Closed open sessions", zap.Int("count", len(open)))
	}
}
