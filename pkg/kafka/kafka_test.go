package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/resilience"
)

var _ Publisher = (*Producer)(nil)

type reloadNotice struct {
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[reloadNotice]([]byte(`{"kind":"pagerank","generated_at":"2024-05-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Kind != "pagerank" || got.GeneratedAt.Year() != 2024 {
		t.Errorf("decoded %+v", got)
	}

	if _, err := DecodeJSON[reloadNotice]([]byte(`{"kind":`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestDecodeFailureIsNotRetried(t *testing.T) {
	calls := 0
	err := resilience.Retry(context.Background(), "decode", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		_, err := DecodeJSON[reloadNotice]([]byte("not json"))
		return err
	})
	if err == nil || calls != 1 {
		t.Errorf("calls = %d, err = %v; want one call and an error", calls, err)
	}
}
