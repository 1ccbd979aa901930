package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/utils"
)

const defaultListLimit = 50

type InterviewRepository interface {
	Create(ctx context.Context, iv *models.Interview) error
	Get(ctx context.Context, interviewID string) (*models.Interview, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error)
	MarkReady(ctx context.Context, interviewID, callID, joinURL string) error
	MarkFailed(ctx context.Context, interviewID, reason string) error
	SetStatus(ctx context.Context, interviewID string, status models.InterviewStatus) error
	SaveResult(ctx context.Context, interviewID string, res Result) error
	SetArchivePath(ctx context.Context, interviewID, path string) error
}

// Result is what the analysis step writes back. A nil Analysis records a
// failed analysis while keeping the transcript.
type Result struct {
	Transcript []models.TranscriptEntry
	Analysis   *models.AnalysisResult
	Status     models.InterviewStatus
	Error      string
}

type interviewRepo struct {
	col *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepository {
	return &interviewRepo{col: db.Collection("interviews")}
}

func (r *interviewRepo) Create(ctx context.Context, iv *models.Interview) error {
	now := time.Now().UTC()
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = now
	}
	iv.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, iv)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrConflict
	}
	return err
}

func (r *interviewRepo) Get(ctx context.Context, interviewID string) (*models.Interview, error) {
	var iv models.Interview
	err := r.col.FindOne(ctx, bson.M{"interview_id": interviewID}).Decode(&iv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (r *interviewRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Interview, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Interview{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interviewRepo) update(ctx context.Context, interviewID string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"interview_id": interviewID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *interviewRepo) MarkReady(ctx context.Context, interviewID, callID, joinURL string) error {
	return r.update(ctx, interviewID, bson.M{
		"status":   models.StatusReady,
		"call_id":  callID,
		"join_url": joinURL,
	})
}

func (r *interviewRepo) MarkFailed(ctx context.Context, interviewID, reason string) error {
	return r.update(ctx, interviewID, bson.M{"status": models.StatusFailed, "error": reason})
}

func (r *interviewRepo) SetStatus(ctx context.Context, interviewID string, status models.InterviewStatus) error {
	return r.update(ctx, interviewID, bson.M{"status": status})
}

func (r *interviewRepo) SaveResult(ctx context.Context, interviewID string, res Result) error {
	set := bson.M{
		"status":     res.Status,
		"transcript": res.Transcript,
		"error":      res.Error,
	}
	if res.Analysis != nil {
		set["analysis"] = res.Analysis
		set["completed_at"] = time.Now().UTC()
	}
	return r.update(ctx, interviewID, set)
}

func (r *interviewRepo) SetArchivePath(ctx context.Context, interviewID, path string) error {
	return r.update(ctx, interviewID, bson.M{"archive_path": path})
}
