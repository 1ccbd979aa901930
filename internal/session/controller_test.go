package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/intervuo/internal/logger"
	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/transport"
	"github.com/yoockh/intervuo/internal/transport/transporttest"
)

type fakeAnalyzer struct {
	calls   atomic.Int32
	block   chan struct{}
	entered chan struct{}
	err     error

	mu   sync.Mutex
	got  []models.TranscriptEntry
	ids  []string
	cfgs []models.InterviewConfig
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{entered: make(chan struct{}, 4)}
}

func (a *fakeAnalyzer) Analyze(_ context.Context, transcript []models.TranscriptEntry, cfg models.InterviewConfig, sessionID string) (*models.AnalysisResult, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.got = append([]models.TranscriptEntry(nil), transcript...)
	a.ids = append(a.ids, sessionID)
	a.cfgs = append(a.cfgs, cfg)
	a.mu.Unlock()

	a.entered <- struct{}{}
	if a.block != nil {
		<-a.block
	}
	if a.err != nil {
		return nil, a.err
	}
	return &models.AnalysisResult{Summary: "ok", Scores: map[string]*int{}}, nil
}

func (a *fakeAnalyzer) received() []models.TranscriptEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.got
}

var (
	handle    = models.SessionHandle{CallID: "c1", JoinURL: "https://x/join"}
	interview = Interview{
		ID:     "iv-1",
		Config: models.InterviewConfig{Company: "Acme", Role: "SRE", Level: models.LevelMid, InterviewType: models.TypeBehavioral},
	}
)

func newTestController(t *testing.T, tr *transporttest.Fake, an Analyzer, timeout time.Duration) *Controller {
	t.Helper()
	c := NewController(tr.Factory(), an, Options{
		AnalysisTimeout: timeout,
		LeaveTimeout:    time.Second,
		Logger:          logger.Discard(),
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, 2*time.Second, 5*time.Millisecond,
		"state never became %s (last %s)", want, c.State())
}

func waitOutcome(t *testing.T, c *Controller) Outcome {
	t.Helper()
	select {
	case out := <-c.Outcomes():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome published")
		return Outcome{}
	}
}

func finalEntry(speaker, text string) transport.Transcript {
	return transport.Transcript{Speaker: speaker, Text: text, IsFinal: true}
}

func joinActive(t *testing.T, c *Controller, tr *transporttest.Fake) {
	t.Helper()
	require.NoError(t, c.Join(context.Background(), handle, interview))
	assert.Equal(t, StateConnecting, c.State())
	tr.EmitStatus(transport.StatusConnecting)
	tr.EmitStatus(transport.StatusIdle)
	waitState(t, c, StateActive)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" Speaking ")
	require.True(t, ok)
	assert.Equal(t, StatusSpeaking, st)
	assert.True(t, st.Active())

	st, ok = ParseStatus("disconnected")
	require.True(t, ok)
	assert.False(t, st.Active())

	_, ok = ParseStatus("reconnecting")
	assert.False(t, ok)
}

func TestJoinRejectsInvalidHandle(t *testing.T) {
	c := newTestController(t, transporttest.New(), newFakeAnalyzer(), time.Second)

	assert.ErrorIs(t, c.Join(context.Background(), models.SessionHandle{CallID: "c1"}, interview), ErrInvalidHandle)
	assert.ErrorIs(t, c.Join(context.Background(), models.SessionHandle{JoinURL: "https://x"}, interview), ErrInvalidHandle)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestJoinUsesJoinURL(t *testing.T) {
	tr := transporttest.New()
	c := newTestController(t, tr, newFakeAnalyzer(), time.Second)

	require.NoError(t, c.Join(context.Background(), handle, interview))
	assert.Equal(t, "https://x/join", tr.JoinedURL())
	assert.ErrorIs(t, c.Join(context.Background(), handle, interview), ErrAlreadyJoined)
}

func TestJoinFailureReleasesTransport(t *testing.T) {
	tr := transporttest.New()
	tr.JoinErr = errors.New("dial refused")
	c := newTestController(t, tr, newFakeAnalyzer(), time.Second)

	err := c.Join(context.Background(), handle, interview)
	require.ErrorIs(t, err, ErrConnectionFailure)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 1, tr.Leaves())
	assert.ErrorIs(t, c.Err(), ErrConnectionFailure)

	tr.JoinErr = nil
	require.NoError(t, c.Join(context.Background(), handle, interview), "a failed join must not consume the handle")
}

func TestJoinFactoryError(t *testing.T) {
	c := NewController(func() (transport.Transport, error) { return nil, errors.New("no audio device") },
		newFakeAnalyzer(), Options{Logger: logger.Discard()})
	defer c.Close()

	err := c.Join(context.Background(), handle, interview)
	require.ErrorIs(t, err, ErrConnectionFailure)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestConnectionFailureBeforeActive(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)

	require.NoError(t, c.Join(context.Background(), handle, interview))
	tr.EmitStatus(transport.StatusConnecting)
	tr.EmitStatus(transport.StatusDisconnected)

	out := waitOutcome(t, c)
	assert.Equal(t, ReasonConnectionFailure, out.Reason)
	assert.Equal(t, ResultConnectionFailure, out.Result)
	assert.ErrorIs(t, out.Err, ErrConnectionFailure)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, int32(0), an.calls.Load())
	assert.Equal(t, 1, tr.Leaves())

	require.NoError(t, c.Join(context.Background(), handle, interview), "retry with the same handle is allowed")
}

func TestSubstatesAreDisplayOnly(t *testing.T) {
	tr := transporttest.New()
	c := newTestController(t, tr, newFakeAnalyzer(), time.Second)
	joinActive(t, c, tr)

	tr.EmitStatus(transport.StatusListening)
	tr.EmitStatus(transport.StatusThinking)
	tr.EmitStatus("bogus")
	tr.EmitStatus(transport.StatusSpeaking)

	require.Eventually(t, func() bool { return c.Substate() == SubstateSpeaking }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateActive, c.State())
}

func TestTranscriptSnapshotsReplaceBuffer(t *testing.T) {
	tr := transporttest.New()
	c := newTestController(t, tr, newFakeAnalyzer(), time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(
		finalEntry("agent", "Hello"),
		transport.Transcript{Speaker: "user", Text: "  ", IsFinal: true},
		transport.Transcript{Speaker: "robot", Text: "beep", IsFinal: true},
		transport.Transcript{Speaker: "user", Text: "Hi th", IsFinal: false},
	)
	require.Eventually(t, func() bool { return len(c.Transcript()) == 2 }, time.Second, 5*time.Millisecond)

	tr.EmitTranscripts(finalEntry("agent", "Hello"), finalEntry("user", "Hi there"))
	require.Eventually(t, func() bool {
		ts := c.Transcript()
		return len(ts) == 2 && ts[1].Text == "Hi there" && ts[1].IsFinal
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.SpeakerCandidate, c.Transcript()[1].Speaker)
}

func TestUnexpectedDisconnectTriggersAnalysis(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("agent", "Why this company?"), finalEntry("user", "Because of the mission."))
	tr.EmitStatus(transport.StatusDisconnected)

	out := waitOutcome(t, c)
	assert.Equal(t, ReasonUnexpectedDisconnect, out.Reason)
	assert.Equal(t, ResultAnalyzed, out.Result)
	require.NoError(t, out.Err)
	require.NotNil(t, out.Analysis)
	assert.Equal(t, "ok", out.Analysis.Summary)
	assert.Equal(t, "iv-1", out.SessionID)

	assert.Equal(t, int32(1), an.calls.Load())
	assert.Len(t, an.received(), 2)
	assert.Equal(t, StateDisconnected, c.State())
	assert.False(t, c.Analyzing())

	assert.ErrorIs(t, c.Join(context.Background(), handle, interview), ErrHandleConsumed)
}

func TestSnapshotAfterDropIsAnalyzed(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("agent", "Describe a conflict."))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 1 }, time.Second, 5*time.Millisecond)

	tr.EmitStatus(transport.StatusDisconnected)
	tr.EmitTranscripts(finalEntry("agent", "Describe a conflict."), finalEntry("user", "We disagreed on a rollout."))

	out := waitOutcome(t, c)
	assert.Equal(t, ReasonUnexpectedDisconnect, out.Reason)
	assert.Equal(t, ResultAnalyzed, out.Result)
	assert.Len(t, out.Transcript, 2)
	assert.Len(t, an.received(), 2)
	assert.Len(t, c.Transcript(), 2)
	assert.Equal(t, int32(1), an.calls.Load())
}

func TestSnapshotsAcceptedDuringDropGrace(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := NewController(tr.Factory(), an, Options{
		AnalysisTimeout: time.Second,
		LeaveTimeout:    time.Second,
		DropGrace:       100 * time.Millisecond,
		Logger:          logger.Discard(),
	})
	t.Cleanup(func() { _ = c.Close() })
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("agent", "q1"))
	tr.EmitStatus(transport.StatusDisconnected)
	waitState(t, c, StateDisconnecting)
	assert.ErrorIs(t, c.SendText(context.Background(), "hi"), ErrNoActiveSession)

	tr.EmitTranscripts(finalEntry("agent", "q1"), finalEntry("user", "a1"))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 2 }, time.Second, 5*time.Millisecond)

	out := waitOutcome(t, c)
	assert.Equal(t, ReasonUnexpectedDisconnect, out.Reason)
	assert.Len(t, an.received(), 2)
}

func TestEndDuringDropGraceReportsDrop(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := NewController(tr.Factory(), an, Options{
		AnalysisTimeout: time.Second,
		LeaveTimeout:    time.Second,
		DropGrace:       time.Minute,
		Logger:          logger.Discard(),
	})
	t.Cleanup(func() { _ = c.Close() })
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("user", "answer"))
	tr.EmitStatus(transport.StatusDisconnected)
	waitState(t, c, StateDisconnecting)

	out, err := c.EndInterview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonUnexpectedDisconnect, out.Reason)
	assert.Equal(t, ResultAnalyzed, out.Result)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, int32(1), an.calls.Load())
}

func TestEndReadsTransportTranscripts(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("agent", "q1"))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 1 }, time.Second, 5*time.Millisecond)
	tr.SetTranscripts(finalEntry("agent", "q1"), finalEntry("user", "a1"), transport.Transcript{Speaker: "user", Text: "a2 partial"})

	out, err := c.EndInterview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResultAnalyzed, out.Result)
	require.Len(t, an.received(), 2)
	assert.Equal(t, "a1", an.received()[1].Text)
	assert.Len(t, c.Transcript(), 2)
}

func TestEndInterviewEmptyTranscript(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	out, err := c.EndInterview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResultEmptyTranscript, out.Result)
	assert.Equal(t, ReasonEnded, out.Reason)
	assert.Equal(t, int32(0), an.calls.Load())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 1, tr.Leaves())
}

func TestEndInterviewDropsNonFinalEntries(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(
		finalEntry("agent", "Describe a conflict."),
		finalEntry("user", "Once, my team disagreed."),
		transport.Transcript{Speaker: "agent", Text: "How did you", IsFinal: false},
	)
	require.Eventually(t, func() bool { return len(c.Transcript()) == 3 }, time.Second, 5*time.Millisecond)

	out, err := c.EndInterview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResultAnalyzed, out.Result)

	got := an.received()
	require.Len(t, got, 2)
	for _, e := range got {
		assert.True(t, e.IsFinal)
	}
	assert.Len(t, c.Transcript(), 2)
}

func TestEndInterviewTwiceAnalyzesOnce(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	an.block = make(chan struct{})
	c := newTestController(t, tr, an, 5*time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("agent", "Q"), finalEntry("user", "A"))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 2 }, time.Second, 5*time.Millisecond)

	type res struct {
		out Outcome
		err error
	}
	first := make(chan res, 1)
	go func() {
		out, err := c.EndInterview(context.Background())
		first <- res{out, err}
	}()

	<-an.entered
	assert.True(t, c.Analyzing())

	_, err := c.EndInterview(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyAnalyzing)

	close(an.block)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, ResultAnalyzed, r.out.Result)
	assert.Equal(t, int32(1), an.calls.Load())

	_, err = c.EndInterview(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAnalysisTimeoutKeepsTranscript(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	an.block = make(chan struct{})
	defer close(an.block)
	c := newTestController(t, tr, an, 50*time.Millisecond)
	joinActive(t, c, tr)

	tr.EmitTranscripts(
		finalEntry("agent", "one"),
		finalEntry("user", "two"),
		finalEntry("agent", "three"),
		finalEntry("user", "four"),
		finalEntry("agent", "five"),
	)
	require.Eventually(t, func() bool { return len(c.Transcript()) == 5 }, time.Second, 5*time.Millisecond)

	out, err := c.EndInterview(context.Background())
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ResultAnalysisFailed, out.Result)
	assert.Nil(t, out.Analysis)
	assert.Len(t, out.Transcript, 5)
	assert.Len(t, c.Transcript(), 5)
	assert.Equal(t, StateDisconnected, c.State())
	assert.False(t, c.Analyzing())
}

func TestAnalysisErrorIsReported(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	an.err = errors.New("upstream 500")
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("user", "hello"))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 1 }, time.Second, 5*time.Millisecond)

	out, err := c.EndInterview(context.Background())
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, ResultAnalysisFailed, out.Result)
	assert.Len(t, out.Transcript, 1)
}

func TestNoSessionIdentifier(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)

	require.NoError(t, c.Join(context.Background(), handle, Interview{Config: interview.Config}))
	tr.EmitStatus(transport.StatusIdle)
	tr.EmitTranscripts(finalEntry("user", "hello"))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 1 }, time.Second, 5*time.Millisecond)

	out, err := c.EndInterview(context.Background())
	require.ErrorIs(t, err, ErrNoSessionIdentifier)
	assert.Equal(t, ResultNoSessionIdentifier, out.Result)
	assert.Equal(t, int32(0), an.calls.Load())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestLeaveErrorIsTolerated(t *testing.T) {
	tr := transporttest.New()
	tr.LeaveErr = errors.New("already closed")
	c := newTestController(t, tr, newFakeAnalyzer(), time.Second)
	joinActive(t, c, tr)

	out, err := c.EndInterview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResultEmptyTranscript, out.Result)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestLateEventsAfterEndAreIgnored(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("user", "answer"))
	require.Eventually(t, func() bool { return len(c.Transcript()) == 1 }, time.Second, 5*time.Millisecond)

	_, err := c.EndInterview(context.Background())
	require.NoError(t, err)
	<-c.Outcomes()

	tr.EmitStatus(transport.StatusDisconnected)
	tr.EmitStatus(transport.StatusDisconnected)
	tr.EmitStatus(transport.StatusSpeaking)
	tr.EmitTranscripts(finalEntry("user", "late"), finalEntry("agent", "later"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, int32(1), an.calls.Load())
	assert.Len(t, c.Transcript(), 1)
	select {
	case out := <-c.Outcomes():
		t.Fatalf("unexpected second outcome: %+v", out)
	default:
	}
}

func TestDisconnectedTwiceAfterDrop(t *testing.T) {
	tr := transporttest.New()
	an := newFakeAnalyzer()
	c := newTestController(t, tr, an, time.Second)
	joinActive(t, c, tr)

	tr.EmitTranscripts(finalEntry("user", "answer"))
	tr.EmitStatus(transport.StatusDisconnected)
	tr.EmitStatus(transport.StatusDisconnected)

	out := waitOutcome(t, c)
	assert.Equal(t, ReasonUnexpectedDisconnect, out.Reason)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), an.calls.Load())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestEndWithoutJoin(t *testing.T) {
	c := newTestController(t, transporttest.New(), newFakeAnalyzer(), time.Second)

	_, err := c.EndInterview(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestCloseReleasesTransport(t *testing.T) {
	tr := transporttest.New()
	c := NewController(tr.Factory(), newFakeAnalyzer(), Options{Logger: logger.Discard()})
	joinActive(t, c, tr)

	require.NoError(t, c.Close())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 1, tr.Leaves())
	assert.ErrorIs(t, c.Join(context.Background(), models.SessionHandle{CallID: "c2", JoinURL: "https://x/2"}, interview), ErrClosed)
}

func TestSendTextNeedsLiveCall(t *testing.T) {
	tr := transporttest.New()
	c := newTestController(t, tr, newFakeAnalyzer(), time.Second)

	assert.ErrorIs(t, c.SendText(context.Background(), "hi"), ErrNoActiveSession)

	joinActive(t, c, tr)
	assert.ErrorIs(t, c.SendText(context.Background(), "hi"), ErrTextUnsupported)
}
