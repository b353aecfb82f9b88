// Package scheduler debounces payloads behind cancellable timer tokens.
package scheduler

import (
	"sync"
	"time"
)

// Token identifies an armed timer. The zero Token is never issued.
type Token uint64

// Scheduler arms payloads for delayed delivery to a fire callback.
// Schedule keeps at most one armed payload: arming a new one cancels the previous token.
type Scheduler[T any] struct {
	clock Clock
	delay time.Duration
	fire  func(T)

	mu      sync.Mutex
	next    Token
	current Token
	timers  map[Token]Timer
}

// New creates a scheduler delivering payloads to fire after delay.
func New[T any](clock Clock, delay time.Duration, fire func(T)) *Scheduler[T] {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler[T]{
		clock:  clock,
		delay:  delay,
		fire:   fire,
		timers: make(map[Token]Timer),
	}
}

// Delay returns the default debounce window.
func (s *Scheduler[T]) Delay() time.Duration { return s.delay }

// Arm schedules payload after delay and returns its token.
func (s *Scheduler[T]) Arm(delay time.Duration, payload T) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armLocked(delay, payload)
}

// Cancel disarms token. Reports whether the payload was still pending.
func (s *Scheduler[T]) Cancel(token Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(token)
}

// Schedule cancels the current token and arms payload with the default delay.
// replaced reports whether a still-pending payload was cancelled. A payload whose
// timer has already fired is not replaced: it is delivered.
func (s *Scheduler[T]) Schedule(payload T) (token Token, replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != 0 {
		replaced = s.cancelLocked(s.current)
	}
	s.current = s.armLocked(s.delay, payload)
	return s.current, replaced
}

// Armed reports whether any payload is pending.
func (s *Scheduler[T]) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers) > 0
}

// Stop cancels every pending payload.
func (s *Scheduler[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok := range s.timers {
		s.cancelLocked(tok)
	}
}

func (s *Scheduler[T]) armLocked(delay time.Duration, payload T) Token {
	s.next++
	tok := s.next
	s.timers[tok] = s.clock.AfterFunc(delay, func() { s.deliver(tok, payload) })
	return tok
}

func (s *Scheduler[T]) cancelLocked(token Token) bool {
	t, ok := s.timers[token]
	if !ok {
		return false
	}
	delete(s.timers, token)
	if s.current == token {
		s.current = 0
	}
	t.Stop()
	return true
}

// deliver runs on the timer goroutine. A token cancelled after its timer
// already fired is no longer registered and is dropped here.
func (s *Scheduler[T]) deliver(token Token, payload T) {
	s.mu.Lock()
	if _, ok := s.timers[token]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, token)
	if s.current == token {
		s.current = 0
	}
	s.mu.Unlock()

	s.fire(payload)
}
