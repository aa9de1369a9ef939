// Package sync implements the client-side synchronization contract: locally
// typed changes are debounced before emission, a broadcast that echoes the
// content about to be emitted suppresses that emission once, and unsaved
// content can be flushed synchronously on shutdown.
package sync

import (
	"context"
	"sync"
	"time"
)

const defaultDebounce = 200 * time.Millisecond

// Saver persists content directly, bypassing the live socket. Used for the
// final best-effort flush when the client is going away.
type Saver interface {
	Save(ctx context.Context, content string) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, content string) error

func (f SaverFunc) Save(ctx context.Context, content string) error { return f(ctx, content) }

// Syncer reconciles local edits with remote broadcasts for a single document.
// All methods are safe for concurrent use.
type Syncer struct {
	mu           sync.Mutex
	delay        time.Duration
	emit         func(content string)
	saver        Saver
	timer        *time.Timer
	content      string
	flushed      string
	pending      bool
	suppressNext bool
}

// NewSyncer returns a Syncer that calls emit with the current content after
// delay of local quiet time. A non-positive delay selects the default 200ms.
func NewSyncer(delay time.Duration, emit func(content string), saver Saver) *Syncer {
	if delay <= 0 {
		delay = defaultDebounce
	}
	return &Syncer{delay: delay, emit: emit, saver: saver}
}

// Edit records a locally typed change and restarts the debounce window.
func (s *Syncer) Edit(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Receive processes a broadcast update. If it matches content the client is
// about to emit itself, the next scheduled emission is suppressed once;
// otherwise the remote content wins and any pending local emission is
// cancelled.
func (s *Syncer) Receive(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending && content == s.content {
		s.suppressNext = true
		return
	}
	s.content = content
	s.flushed = content
	s.pending = false
	s.suppressNext = false
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Content returns the current working content.
func (s *Syncer) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Flush cancels any pending emission and synchronously saves content that
// has not reached the server yet. Safe to call more than once.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
	if s.content == s.flushed || s.saver == nil {
		s.mu.Unlock()
		return nil
	}
	content := s.content
	saver := s.saver
	s.mu.Unlock()

	if err := saver.Save(ctx, content); err != nil {
		return err
	}

	s.mu.Lock()
	if s.content == content {
		s.flushed = content
	}
	s.mu.Unlock()
	return nil
}

func (s *Syncer) fire() {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	if s.suppressNext {
		s.suppressNext = false
		s.flushed = s.content
		s.mu.Unlock()
		return
	}
	content := s.content
	s.flushed = content
	emit := s.emit
	s.mu.Unlock()

	emit(content)
}
