package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/providers/voice"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	"github.com/yoockh/intervuo/internal/utils"
)

type memInterviews struct {
	mu    sync.Mutex
	items map[string]*models.Interview
	saved []mongorepo.Result
	lists int
	// saveErr makes SaveResult fail without touching the record.
	saveErr error
}

func newMemInterviews() *memInterviews {
	return &memInterviews{items: map[string]*models.Interview{}}
}

func (m *memInterviews) Create(_ context.Context, iv *models.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[iv.InterviewID]; ok {
		return utils.ErrConflict
	}
	iv.CreatedAt = time.Now().UTC()
	cp := *iv
	m.items[iv.InterviewID] = &cp
	return nil
}

func (m *memInterviews) Get(_ context.Context, id string) (*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.items[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *iv
	return &cp, nil
}

func (m *memInterviews) ListByUser(_ context.Context, userID string, _ int64) ([]models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := []models.Interview{}
	for _, iv := range m.items {
		if iv.UserID == userID {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (m *memInterviews) with(id string, fn func(iv *models.Interview)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.items[id]
	if !ok {
		return utils.ErrNotFound
	}
	fn(iv)
	return nil
}

func (m *memInterviews) MarkReady(_ context.Context, id, callID, joinURL string) error {
	return m.with(id, func(iv *models.Interview) {
		iv.Status, iv.CallID, iv.JoinURL = models.StatusReady, callID, joinURL
	})
}

func (m *memInterviews) MarkFailed(_ context.Context, id, reason string) error {
	return m.with(id, func(iv *models.Interview) { iv.Status, iv.Error = models.StatusFailed, reason })
}

func (m *memInterviews) SetStatus(_ context.Context, id string, st models.InterviewStatus) error {
	return m.with(id, func(iv *models.Interview) { iv.Status = st })
}

func (m *memInterviews) SaveResult(_ context.Context, id string, res mongorepo.Result) error {
	m.mu.Lock()
	m.saved = append(m.saved, res)
	saveErr := m.saveErr
	m.mu.Unlock()
	if saveErr != nil {
		return saveErr
	}
	return m.with(id, func(iv *models.Interview) {
		iv.Status, iv.Transcript, iv.Error = res.Status, res.Transcript, res.Error
		if res.Analysis != nil {
			iv.AnalysisResult = res.Analysis
		}
	})
}

func (m *memInterviews) SetArchivePath(_ context.Context, id, path string) error {
	return m.with(id, func(iv *models.Interview) { iv.ArchivePath = path })
}

func (m *memInterviews) status(id string) models.InterviewStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Status
}

type memProfiles struct {
	mu    sync.Mutex
	items map[string]models.Profile
	err   error
}

func newMemProfiles() *memProfiles { return &memProfiles{items: map[string]models.Profile{}} }

func (m *memProfiles) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.items[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.UserID] = *p
	return nil
}

type fakeVoice struct {
	call voice.Call
	err  error
	reqs []voice.CallRequest
}

func (f *fakeVoice) CreateCall(_ context.Context, req voice.CallRequest) (voice.Call, error) {
	f.reqs = append(f.reqs, req)
	return f.call, f.err
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	claims  map[string]bool
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, claims: map[string]bool{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

func (c *memCache) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claims[key] {
		return false, nil
	}
	c.claims[key] = true
	return true, nil
}

func (c *memCache) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, key)
	return nil
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	res    *models.AnalysisResult
	err    error
	block  chan struct{}
	calls  int
	cfgs   []models.InterviewConfig
	closed int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, _ []models.TranscriptEntry, cfg models.InterviewConfig, _ string) (*models.AnalysisResult, error) {
	a.mu.Lock()
	a.calls++
	a.cfgs = append(a.cfgs, cfg)
	a.mu.Unlock()
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.res, a.err
}

func (a *fakeAnalyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed++
	return nil
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *fakeQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) SignedGetURL(_ context.Context, object string, _ time.Duration) (string, error) {
	return "https://signed.example/" + object, nil
}
