package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *emitRecorder) emit(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, content)
}

func (r *emitRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type saveRecorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *saveRecorder) Save(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, content)
	return nil
}

func (r *saveRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

const testDelay = 20 * time.Millisecond

func settle() { time.Sleep(5 * testDelay) }

func TestEdit_DebounceCoalescesBursts(t *testing.T) {
	rec := &emitRecorder{}
	s := NewSyncer(testDelay, rec.emit, nil)

	s.Edit("a")
	s.Edit("ab")
	s.Edit("abc")
	settle()

	assert.Equal(t, []string{"abc"}, rec.snapshot())
}

func TestReceive_MatchingContentSuppressesEmissionOnce(t *testing.T) {
	rec := &emitRecorder{}
	s := NewSyncer(testDelay, rec.emit, nil)

	// the edit is echoed back through another room before the timer fires
	s.Edit("x")
	s.Receive("x")
	settle()
	assert.Empty(t, rec.snapshot())

	// suppression is one-shot, the next edit emits normally
	s.Edit("y")
	settle()
	assert.Equal(t, []string{"y"}, rec.snapshot())
}

func TestReceive_RemoteContentWinsAndCancelsPendingEmission(t *testing.T) {
	rec := &emitRecorder{}
	s := NewSyncer(testDelay, rec.emit, nil)

	s.Edit("local")
	s.Receive("remote")
	settle()

	assert.Empty(t, rec.snapshot())
	assert.Equal(t, "remote", s.Content())
}

func TestFlush_SavesUnsavedContent(t *testing.T) {
	rec := &emitRecorder{}
	saver := &saveRecorder{}
	s := NewSyncer(time.Hour, rec.emit, saver)

	s.Edit("draft")
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"draft"}, saver.snapshot())

	// already flushed, nothing left to save
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"draft"}, saver.snapshot())

	// the pending emission was cancelled by the flush
	settle()
	assert.Empty(t, rec.snapshot())
}

func TestFlush_NoOpWhenContentAlreadyEmitted(t *testing.T) {
	rec := &emitRecorder{}
	saver := &saveRecorder{}
	s := NewSyncer(testDelay, rec.emit, saver)

	s.Edit("v1")
	settle()
	require.Equal(t, []string{"v1"}, rec.snapshot())

	require.NoError(t, s.Flush(context.Background()))
	assert.Empty(t, saver.snapshot())
}

func TestFlush_SaverErrorLeavesContentUnflushed(t *testing.T) {
	saver := &saveRecorder{err: errors.New("store down")}
	s := NewSyncer(time.Hour, func(string) {}, saver)

	s.Edit("draft")
	require.Error(t, s.Flush(context.Background()))

	// a retry after the store recovers saves the same content
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"draft"}, saver.snapshot())
}
