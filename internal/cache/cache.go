package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Claimer grants a key to exactly one caller until it expires or is
// released.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func HistoryKey(userID string) string { return "history:" + userID }

func AnalysisClaimKey(interviewID string) string { return "analysis:claim:" + interviewID }
