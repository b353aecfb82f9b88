// Package redis implements the page cache on Redis or Valkey via rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/entrysearch/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	defaultClientName = "entrysearch"
	minProbeInterval  = 50 * time.Millisecond
	maxProbeInterval  = time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	ClientName  string
	DialTimeout time.Duration
}

// Store is a rueidis-backed db.Store.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the configured nodes. Client-side caching is disabled:
// pages are already keyed by query and expire on their own TTL.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, db.ErrNoAddrs
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		Dialer:       net.Dialer{Timeout: cfg.DialTimeout},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect cache %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping sends PING.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping cache: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately, then backs off from 50ms up to 1s between attempts.
// On timeout the last ping error is returned alongside the context error.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := minProbeInterval
	for {
		lastErr := s.Ping(ctx)
		if lastErr == nil {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("cache not ready: %w", errors.Join(ctx.Err(), lastErr))
		case <-timer.C:
		}
		interval = min(interval*2, maxProbeInterval)
	}
}
