package workers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/intervuo/internal/logger"
	"github.com/yoockh/intervuo/internal/models"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	"github.com/yoockh/intervuo/internal/utils"
)

type stubInterviews struct {
	mongorepo.InterviewRepository
	items map[string]*models.Interview
	paths map[string]string
}

func (s *stubInterviews) Get(_ context.Context, id string) (*models.Interview, error) {
	iv, ok := s.items[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return iv, nil
}

func (s *stubInterviews) SetArchivePath(_ context.Context, id, path string) error {
	s.paths[id] = path
	return nil
}

type memUploader struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (u *memUploader) Upload(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.objects[name] = b
	u.types[name] = contentType
	return "gs://bucket/" + name, nil
}

func newPool() (*ArchivePool, *stubInterviews, *memUploader) {
	score := 7
	repo := &stubInterviews{
		items: map[string]*models.Interview{
			"iv-1": {
				InterviewID:     "iv-1",
				UserID:          "u-1",
				InterviewConfig: models.InterviewConfig{Company: "Acme", Role: "SRE", Level: models.LevelMid, InterviewType: models.TypeBehavioral},
				Transcript:      []models.TranscriptEntry{{Speaker: models.SpeakerCandidate, Text: "hello", IsFinal: true}},
				AnalysisResult:  &models.AnalysisResult{Summary: "ok", Scores: map[string]*int{models.MetricClarity: &score}},
				CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
			"iv-empty": {InterviewID: "iv-empty", UserID: "u-1"},
		},
		paths: map[string]string{},
	}
	up := &memUploader{objects: map[string][]byte{}, types: map[string]string{}}
	return &ArchivePool{Interviews: repo, Uploader: up, Logger: logger.Discard()}, repo, up
}

func TestArchive(t *testing.T) {
	pool, repo, up := newPool()

	require.NoError(t, pool.Archive(context.Background(), "iv-1"))

	const object = "transcripts/u-1/iv-1.json"
	require.Contains(t, up.objects, object)
	assert.Equal(t, "application/json", up.types[object])
	assert.Equal(t, "gs://bucket/"+object, repo.paths["iv-1"])

	var doc map[string]any
	require.NoError(t, json.Unmarshal(up.objects[object], &doc))
	assert.Equal(t, "iv-1", doc["interviewId"])
	assert.Equal(t, "Acme", doc["interviewDetails"].(map[string]any)["company"])
	assert.Len(t, doc["transcript"], 1)
	assert.Equal(t, "ok", doc["analysis"].(map[string]any)["summary"])
}

func TestArchiveFailures(t *testing.T) {
	pool, repo, up := newPool()

	assert.ErrorIs(t, pool.Archive(context.Background(), "missing"), utils.ErrNotFound)
	assert.Error(t, pool.Archive(context.Background(), "iv-empty"))

	up.err = errors.New("bucket gone")
	assert.ErrorContains(t, pool.Archive(context.Background(), "iv-1"), "bucket gone")
	assert.Empty(t, repo.paths)
}

func TestHandleMsg(t *testing.T) {
	pool, repo, _ := newPool()

	pool.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"interview_id": "iv-1"}})
	assert.Contains(t, repo.paths, "iv-1")

	pool.handleMsg(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]any{"other": "x"}})
	assert.Len(t, repo.paths, 1)
}

func TestStartRequiresDependencies(t *testing.T) {
	assert.Error(t, (&ArchivePool{}).Start(context.Background()))
}
