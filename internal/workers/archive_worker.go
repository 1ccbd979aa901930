package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/intervuo/internal/models"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	"github.com/yoockh/intervuo/internal/storage"
)

const (
	ArchiveStream = "interview:completed"
	archiveGroup  = "archive-workers"
	fieldID       = "interview_id"
)

// StreamQueue appends archive jobs to a Redis stream.
type StreamQueue struct {
	rdb    redis.Cmdable
	stream string
}

func NewStreamQueue(rdb redis.Cmdable) *StreamQueue {
	return &StreamQueue{rdb: rdb, stream: ArchiveStream}
}

func (q *StreamQueue) Enqueue(ctx context.Context, interviewID string) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{fieldID: interviewID},
	}).Err()
}

// ArchivePool copies finished interviews to object storage.
type ArchivePool struct {
	Redis      *redis.Client
	Interviews mongorepo.InterviewRepository
	Uploader   storage.Uploader
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

type archiveDoc struct {
	InterviewID string                   `json:"interviewId"`
	UserID      string                   `json:"userId"`
	Config      models.InterviewConfig   `json:"interviewDetails"`
	Transcript  []models.TranscriptEntry `json:"transcript"`
	Analysis    *models.AnalysisResult   `json:"analysis,omitempty"`
	CallID      string                   `json:"callId,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
}

func (p *ArchivePool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Interviews == nil || p.Uploader == nil {
		return errors.New("ArchivePool missing dependency: Redis/Interviews/Uploader must be set")
	}
	if p.Stream == "" {
		p.Stream = ArchiveStream
	}
	if p.Group == "" {
		p.Group = archiveGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "archiver"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // BUSYGROUP when it exists

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "workers": p.NumWorkers}).Info("archive workers started")
	return nil
}

func (p *ArchivePool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).Warn("archive stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *ArchivePool) handleMsg(ctx context.Context, msg redis.XMessage) {
	id, _ := msg.Values[fieldID].(string)
	if id == "" {
		return
	}
	log := p.Logger.WithFields(logrus.Fields{"redis_id": msg.ID, "interview_id": id})
	if err := p.Archive(ctx, id); err != nil {
		log.WithError(err).Error("archiving transcript failed")
		return
	}
	log.Info("transcript archived")
}

// Archive uploads one interview's transcript and analysis and records
// where it went.
func (p *ArchivePool) Archive(ctx context.Context, interviewID string) error {
	iv, err := p.Interviews.Get(ctx, interviewID)
	if err != nil {
		return err
	}
	if len(iv.Transcript) == 0 {
		return errors.New("interview has no transcript")
	}

	body, err := json.Marshal(archiveDoc{
		InterviewID: iv.InterviewID,
		UserID:      iv.UserID,
		Config:      iv.InterviewConfig,
		Transcript:  iv.Transcript,
		Analysis:    iv.AnalysisResult,
		CallID:      iv.CallID,
		CreatedAt:   iv.CreatedAt,
		CompletedAt: iv.CompletedAt,
	})
	if err != nil {
		return err
	}

	path, err := p.Uploader.Upload(ctx, storage.TranscriptObject(iv.UserID, iv.InterviewID), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return p.Interviews.SetArchivePath(ctx, iv.InterviewID, path)
}
