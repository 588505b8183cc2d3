package analytics

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/kafka"
)

// AnnounceIndexComplete publishes event keyed by its kind.
func AnnounceIndexComplete(ctx context.Context, pub kafka.Publisher, event IndexCompleteEvent) error {
	if err := pub.Publish(ctx, kafka.Event{Key: event.Kind, Value: event}); err != nil {
		return fmt.Errorf("announcing %s completion: %w", event.Kind, err)
	}
	return nil
}
