// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"sync"

	"github.com/yoockh/intervuo/internal/transport"
)

// Fake records calls and lets tests drive status and transcript events.
// Leave reports "disconnecting" then "disconnected" like a real client.
type Fake struct {
	JoinErr  error
	LeaveErr error

	mu            sync.Mutex
	joinedURL     string
	joins         int
	leaves        int
	status        string
	transcripts   []transport.Transcript
	statusFns     []func(string)
	transcriptFns []func([]transport.Transcript)
}

var _ transport.Transport = (*Fake)(nil)

func New() *Fake { return &Fake{status: transport.StatusDisconnected} }

// Factory returns a transport.Factory that always hands out f.
func (f *Fake) Factory() transport.Factory {
	return func() (transport.Transport, error) { return f, nil }
}

func (f *Fake) Join(_ context.Context, joinURL string) error {
	f.mu.Lock()
	f.joins++
	f.joinedURL = joinURL
	err := f.JoinErr
	f.mu.Unlock()
	return err
}

func (f *Fake) Leave() error {
	f.mu.Lock()
	f.leaves++
	err := f.LeaveErr
	f.mu.Unlock()

	f.EmitStatus(transport.StatusDisconnecting)
	f.EmitStatus(transport.StatusDisconnected)
	return err
}

func (f *Fake) OnStatus(fn func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusFns = append(f.statusFns, fn)
}

func (f *Fake) OnTranscripts(fn func([]transport.Transcript)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcriptFns = append(f.transcriptFns, fn)
}

func (f *Fake) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Fake) Transcripts() []transport.Transcript {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.Transcript(nil), f.transcripts...)
}

// EmitStatus sets the status and notifies listeners synchronously.
func (f *Fake) EmitStatus(status string) {
	f.mu.Lock()
	f.status = status
	fns := append([]func(string){}, f.statusFns...)
	f.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}

// EmitTranscripts replaces the transcript list and notifies listeners.
func (f *Fake) EmitTranscripts(ts ...transport.Transcript) {
	f.mu.Lock()
	f.transcripts = append([]transport.Transcript(nil), ts...)
	fns := append([]func([]transport.Transcript){}, f.transcriptFns...)
	f.mu.Unlock()

	for _, fn := range fns {
		fn(append([]transport.Transcript(nil), ts...))
	}
}

// SetTranscripts replaces the transcript list without notifying listeners,
// like an update the transport holds but has not delivered yet.
func (f *Fake) SetTranscripts(ts ...transport.Transcript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append([]transport.Transcript(nil), ts...)
}

func (f *Fake) JoinedURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinedURL
}

func (f *Fake) Joins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins
}

func (f *Fake) Leaves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaves
}
