// Package session drives one live interview call from join to analysis
// hand-off.
//
// Transport callbacks never touch controller state directly. They enqueue
// events that a single loop goroutine applies in arrival order. Every join
// attempt gets a generation number and events carrying an older generation
// are dropped, which is how late events after teardown are ignored.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/transport"
)

const (
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultLeaveTimeout    = 5 * time.Second
	DefaultDropGrace       = 300 * time.Millisecond
	defaultQueueSize       = 64
	outcomeBuffer          = 8
)

// Analyzer receives the finalized transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript []models.TranscriptEntry, cfg models.InterviewConfig, sessionID string) (*models.AnalysisResult, error)
}

// Interview is the context handed to the Analyzer with the transcript.
// ID identifies where results are stored.
type Interview struct {
	ID     string
	Config models.InterviewConfig
}

type Options struct {
	AnalysisTimeout time.Duration
	LeaveTimeout    time.Duration
	// DropGrace is how long snapshots are still accepted after the call
	// dropped on its own, before the transcript is finalized.
	DropGrace       time.Duration
	QueueSize       int
	Logger          *logrus.Logger
}

type eventKind int

const (
	evStatus eventKind = iota
	evTranscripts
	evEnd
	evDropped
)

type event struct {
	kind        eventKind
	gen         uint64
	status      string
	transcripts []transport.Transcript
	reply       chan endReply
}

type finalizeJob struct {
	reason     Reason
	handle     models.SessionHandle
	interview  Interview
	transcript []models.TranscriptEntry
}

type endReply struct {
	job finalizeJob
	err error
}

type Controller struct {
	newTransport transport.Factory
	analyzer     Analyzer
	timeout      time.Duration
	leaveTimeout time.Duration
	dropGrace    time.Duration
	log          *logrus.Logger

	events   chan event
	outcomes chan Outcome
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
	wg       sync.WaitGroup

	mu         sync.RWMutex
	state      State
	sub        Substate
	gen        uint64
	tr         transport.Transport
	handle     models.SessionHandle
	interview  Interview
	buffer     []models.TranscriptEntry
	final      []models.TranscriptEntry
	frozen     bool
	activated  bool
	dropping   bool
	finalizing bool
	consumed   map[string]struct{}
	lastErr    error
}

// NewController starts the event loop. Call Close to stop it.
func NewController(newTransport transport.Factory, analyzer Analyzer, opts Options) *Controller {
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if opts.LeaveTimeout <= 0 {
		opts.LeaveTimeout = DefaultLeaveTimeout
	}
	if opts.DropGrace <= 0 {
		opts.DropGrace = DefaultDropGrace
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		newTransport: newTransport,
		analyzer:     analyzer,
		timeout:      opts.AnalysisTimeout,
		leaveTimeout: opts.LeaveTimeout,
		dropGrace:    opts.DropGrace,
		log:          opts.Logger,
		events:       make(chan event, opts.QueueSize),
		outcomes:     make(chan Outcome, outcomeBuffer),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		consumed:     map[string]struct{}{},
	}

	c.wg.Add(1)
	go c.loop()
	return c
}

// Outcomes reports every terminal outcome, including ones the controller
// reached on its own (connection failures, unexpected drops). Sends never
// block; outcomes are dropped when nobody reads.
func (c *Controller) Outcomes() <-chan Outcome { return c.outcomes }

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Substate() Substate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sub
}

// Analyzing reports whether a finalized transcript is being handed off.
func (c *Controller) Analyzing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finalizing
}

// Err returns the last connection error, if any.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Transcript returns the freshest transcript view: the live snapshot while
// the call runs, the finalized entries after it ended.
func (c *Controller) Transcript() []models.TranscriptEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return append([]models.TranscriptEntry(nil), c.final...)
	}
	return append([]models.TranscriptEntry(nil), c.buffer...)
}

// Join opens the transport for handle and moves to Connecting. A failed
// attempt leaves the controller Disconnected with the handle still usable.
func (c *Controller) Join(ctx context.Context, handle models.SessionHandle, iv Interview) error {
	if strings.TrimSpace(handle.CallID) == "" || strings.TrimSpace(handle.JoinURL) == "" {
		return ErrInvalidHandle
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	switch {
	case c.finalizing:
		c.mu.Unlock()
		return ErrAlreadyAnalyzing
	case c.state != StateDisconnected:
		c.mu.Unlock()
		return ErrAlreadyJoined
	}
	if _, used := c.consumed[handle.CallID]; used {
		c.mu.Unlock()
		return ErrHandleConsumed
	}

	tr, err := c.newTransport()
	if err == nil && tr == nil {
		err = fmt.Errorf("transport factory returned nil")
	}
	if err != nil {
		c.lastErr = fmt.Errorf("%w: %w", ErrConnectionFailure, err)
		c.mu.Unlock()
		return c.lastErr
	}

	c.gen++
	gen := c.gen
	c.tr = tr
	c.handle = handle
	c.interview = iv
	c.buffer = nil
	c.final = nil
	c.frozen = false
	c.activated = false
	c.dropping = false
	c.lastErr = nil
	c.setStateLocked(StateConnecting, SubstateNone)
	c.mu.Unlock()

	tr.OnStatus(func(status string) {
		c.enqueue(event{kind: evStatus, gen: gen, status: status})
	})
	tr.OnTranscripts(func(ts []transport.Transcript) {
		c.enqueue(event{kind: evTranscripts, gen: gen, transcripts: ts})
	})

	if err := tr.Join(ctx, handle.JoinURL); err != nil {
		joinErr := fmt.Errorf("%w: %w", ErrConnectionFailure, err)
		c.mu.Lock()
		current := c.gen == gen
		if current {
			c.gen++
			c.tr = nil
			c.lastErr = joinErr
			c.setStateLocked(StateDisconnected, SubstateNone)
		}
		c.mu.Unlock()
		if current {
			c.release(tr, handle.CallID)
		}
		return joinErr
	}

	c.log.WithFields(logrus.Fields{"call_id": handle.CallID, "session_id": iv.ID}).Info("joining interview call")
	return nil
}

// SendText forwards typed candidate input while the call is live.
func (c *Controller) SendText(ctx context.Context, text string) error {
	c.mu.RLock()
	tr := c.tr
	live := c.state == StateActive && !c.finalizing
	c.mu.RUnlock()
	if tr == nil || !live {
		return ErrNoActiveSession
	}
	ts, ok := tr.(transport.TextSender)
	if !ok {
		return ErrTextUnsupported
	}
	return ts.SendText(ctx, text)
}

// EndInterview tears the session down and hands the finalized transcript to
// the Analyzer. A call made while a hand-off is in flight returns
// ErrAlreadyAnalyzing and does nothing. An empty transcript is not an error:
// the outcome reports ResultEmptyTranscript.
func (c *Controller) EndInterview(ctx context.Context) (Outcome, error) {
	reply := make(chan endReply, 1)
	select {
	case c.events <- event{kind: evEnd, reply: reply}:
	case <-c.done:
		return Outcome{}, ErrClosed
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	var r endReply
	select {
	case r = <-reply:
	case <-c.done:
		return Outcome{}, ErrClosed
	}
	if r.err != nil {
		return Outcome{}, r.err
	}

	out := c.finish(ctx, r.job)
	return out, out.Err
}

// Close releases the transport and stops the loop. Pending hand-offs started
// by the controller itself are cancelled.
func (c *Controller) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.cancel()

		c.mu.Lock()
		tr := c.tr
		callID := c.handle.CallID
		c.tr = nil
		c.gen++
		c.setStateLocked(StateDisconnected, SubstateNone)
		c.mu.Unlock()

		if tr != nil {
			c.release(tr, callID)
		}
	})
	c.wg.Wait()
	return nil
}

func (c *Controller) enqueue(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.events:
			c.apply(ev)
		}
	}
}

func (c *Controller) apply(ev event) {
	switch ev.kind {
	case evStatus:
		c.applyStatus(ev)
	case evTranscripts:
		c.applyTranscripts(ev)
	case evEnd:
		rest := c.drainTranscripts(c.currentGen())
		job, err := c.beginFinalize(ReasonEnded)
		ev.reply <- endReply{job: job, err: err}
		for _, pending := range rest {
			c.apply(pending)
		}
	case evDropped:
		c.finalizeDrop(ev.gen)
	}
}

func (c *Controller) currentGen() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Controller) applyStatus(ev event) {
	st, ok := ParseStatus(ev.status)
	if !ok {
		c.log.WithField("status", ev.status).Warn("ignoring unrecognized transport status")
		return
	}

	c.mu.Lock()
	if ev.gen != c.gen {
		c.mu.Unlock()
		return
	}

	switch {
	case st.Active():
		if c.state == StateConnecting || c.state == StateActive {
			c.activated = true
			c.setStateLocked(StateActive, st.substate())
		}
		c.mu.Unlock()

	case st == StatusDisconnecting:
		if c.state == StateActive {
			c.setStateLocked(StateDisconnecting, SubstateNone)
		}
		c.mu.Unlock()

	case st == StatusDisconnected:
		if c.finalizing || c.dropping || c.state == StateDisconnected {
			c.mu.Unlock()
			return
		}
		if !c.activated {
			c.failConnectLocked()
			return
		}
		// Snapshots may still trail the status; keep accepting them for
		// dropGrace before the transcript is frozen.
		c.dropping = true
		c.setStateLocked(StateDisconnecting, SubstateNone)
		gen := c.gen
		fields := logrus.Fields{"call_id": c.handle.CallID, "session_id": c.interview.ID}
		c.mu.Unlock()

		c.log.WithFields(fields).Warn("call dropped unexpectedly, finalizing interview")
		time.AfterFunc(c.dropGrace, func() {
			c.enqueue(event{kind: evDropped, gen: gen})
		})

	default:
		c.mu.Unlock()
	}
}

// failConnectLocked handles a disconnect that arrived before the call was
// ever live. Nothing was recorded, so nothing is analyzed and the handle
// stays usable. Unlocks c.mu.
func (c *Controller) failConnectLocked() {
	tr := c.tr
	handle := c.handle
	sessionID := c.interview.ID
	c.tr = nil
	c.gen++
	c.lastErr = ErrConnectionFailure
	c.setStateLocked(StateDisconnected, SubstateNone)
	c.mu.Unlock()

	c.log.WithField("call_id", handle.CallID).Error("connection failed before the interview started")
	if tr != nil {
		c.release(tr, handle.CallID)
	}
	c.publish(Outcome{
		Reason:    ReasonConnectionFailure,
		Result:    ResultConnectionFailure,
		CallID:    handle.CallID,
		SessionID: sessionID,
		Err:       ErrConnectionFailure,
	})
}

// finalizeDrop runs the analysis hand-off for a call that dropped on its
// own once the grace window for trailing snapshots has passed.
func (c *Controller) finalizeDrop(gen uint64) {
	c.mu.RLock()
	pending := c.dropping && gen == c.gen
	c.mu.RUnlock()
	if !pending {
		return
	}

	rest := c.drainTranscripts(gen)
	job, err := c.beginFinalize(ReasonUnexpectedDisconnect)
	if err == nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.finish(c.ctx, job)
		}()
	}
	for _, ev := range rest {
		c.apply(ev)
	}
}

// entriesFrom validates raw transport entries: blank text and unknown
// speakers are dropped.
func (c *Controller) entriesFrom(ts []transport.Transcript) []models.TranscriptEntry {
	entries := make([]models.TranscriptEntry, 0, len(ts))
	for _, t := range ts {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		speaker, ok := models.ParseSpeaker(t.Speaker)
		if !ok {
			c.log.WithField("speaker", t.Speaker).Debug("dropping transcript entry with unknown speaker")
			continue
		}
		entries = append(entries, models.TranscriptEntry{Speaker: speaker, Text: text, IsFinal: t.IsFinal})
	}
	return entries
}

func (c *Controller) applyTranscripts(ev event) {
	entries := c.entriesFrom(ev.transcripts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.gen != c.gen || c.finalizing || c.state == StateDisconnected {
		return
	}
	c.buffer = entries
}

// drainTranscripts applies transcript snapshots that are already queued for
// gen and returns every other queued event in order.
func (c *Controller) drainTranscripts(gen uint64) []event {
	var rest []event
	for {
		select {
		case ev := <-c.events:
			if ev.kind == evTranscripts && ev.gen == gen {
				c.applyTranscripts(ev)
				continue
			}
			rest = append(rest, ev)
		default:
			return rest
		}
	}
}

// beginFinalize snapshots the final entries, releases the transport and
// leaves the controller Disconnected with the finalizing guard set. The
// transport's own list is read last so the snapshot is never older than
// what the transport holds. An explicit end during a drop's grace window
// still reports the drop.
func (c *Controller) beginFinalize(reason Reason) (finalizeJob, error) {
	c.mu.RLock()
	live := c.tr
	liveGen := c.gen
	c.mu.RUnlock()
	var latest []models.TranscriptEntry
	if live != nil {
		latest = c.entriesFrom(live.Transcripts())
	}

	c.mu.Lock()
	if c.finalizing {
		c.mu.Unlock()
		return finalizeJob{}, ErrAlreadyAnalyzing
	}
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return finalizeJob{}, ErrNoActiveSession
	}

	if len(latest) > 0 && liveGen == c.gen {
		c.buffer = latest
	}
	if c.dropping {
		reason = ReasonUnexpectedDisconnect
		c.dropping = false
	}
	c.finalizing = true
	c.setStateLocked(StateDisconnecting, SubstateNone)

	job := finalizeJob{
		reason:     reason,
		handle:     c.handle,
		interview:  c.interview,
		transcript: models.FinalEntries(c.buffer),
	}
	c.final = job.transcript
	c.frozen = true
	if c.activated {
		c.consumed[c.handle.CallID] = struct{}{}
	}
	tr := c.tr
	c.tr = nil
	c.gen++
	c.mu.Unlock()

	if tr != nil {
		c.release(tr, job.handle.CallID)
	}

	c.mu.Lock()
	c.setStateLocked(StateDisconnected, SubstateNone)
	c.mu.Unlock()
	return job, nil
}

// finish runs the analysis hand-off for a finalized job and publishes the
// outcome. The controller is already Disconnected when this runs.
func (c *Controller) finish(ctx context.Context, job finalizeJob) Outcome {
	out := Outcome{
		Reason:     job.reason,
		CallID:     job.handle.CallID,
		SessionID:  job.interview.ID,
		Transcript: job.transcript,
	}
	log := c.log.WithFields(logrus.Fields{
		"call_id":    out.CallID,
		"session_id": out.SessionID,
		"reason":     out.Reason,
		"entries":    len(out.Transcript),
	})

	switch {
	case len(job.transcript) == 0:
		out.Result = ResultEmptyTranscript
		log.Info("no transcript recorded, skipping analysis")
	case strings.TrimSpace(job.interview.ID) == "":
		out.Result = ResultNoSessionIdentifier
		out.Err = ErrNoSessionIdentifier
		log.Error("cannot hand off transcript without a session identifier")
	default:
		res, err := c.analyze(ctx, job)
		if err != nil {
			out.Result = ResultAnalysisFailed
			out.Err = fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
			log.WithError(err).Error("transcript analysis failed")
		} else {
			out.Result = ResultAnalyzed
			out.Analysis = res
			log.Info("transcript analyzed")
		}
	}

	c.mu.Lock()
	c.finalizing = false
	c.mu.Unlock()

	c.publish(out)
	return out
}

// analyze bounds the hand-off even when the Analyzer ignores its context.
func (c *Controller) analyze(ctx context.Context, job finalizeJob) (*models.AnalysisResult, error) {
	if c.analyzer == nil {
		return nil, fmt.Errorf("no analyzer configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		res *models.AnalysisResult
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := c.analyzer.Analyze(ctx, job.transcript, job.interview.Config, job.interview.ID)
		ch <- result{res: res, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.res == nil {
			return nil, fmt.Errorf("analyzer returned no result")
		}
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release closes the transport once, best-effort, never waiting longer
// than the leave timeout.
func (c *Controller) release(tr transport.Transport, callID string) {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("leave panicked: %v", p)
			}
		}()
		done <- tr.Leave()
	}()

	log := c.log.WithField("call_id", callID)
	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).Warn("error leaving call")
		}
	case <-time.After(c.leaveTimeout):
		log.Warn("leaving call timed out")
	}
}

func (c *Controller) publish(out Outcome) {
	select {
	case c.outcomes <- out:
	default:
		c.log.WithFields(logrus.Fields{"call_id": out.CallID, "result": out.Result}).Warn("outcome dropped, no reader")
	}
}

func (c *Controller) setStateLocked(s State, sub Substate) {
	if c.state == s && c.sub == sub {
		return
	}
	c.log.WithFields(logrus.Fields{
		"call_id": c.handle.CallID,
		"from":    c.state.String(),
		"to":      s.String(),
		"sub":     sub.String(),
	}).Debug("session state changed")
	c.state = s
	c.sub = sub
}
