package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angeldev7/clinic-scheduling/internal/booking"
)

// DefaultStreamMaxLen caps the journal stream; older entries are trimmed.
const DefaultStreamMaxLen = 10000

// StreamJournal appends booking events to a capped Redis stream.
type StreamJournal struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewStreamJournal(client redis.Cmdable, stream string, maxLen int64) *StreamJournal {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &StreamJournal{client: client, stream: stream, maxLen: maxLen}
}

func (j *StreamJournal) Record(ctx context.Context, ev booking.EventLog) error {
	err := j.client.XAdd(ctx, streamArgs(j.stream, j.maxLen, ev)).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", j.stream, err)
	}
	return nil
}

func streamArgs(stream string, maxLen int64, ev booking.EventLog) *redis.XAddArgs {
	payload := string(ev.Payload)
	if payload == "" {
		payload = "{}"
	}
	return &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{
			"id":         ev.ID.String(),
			"event_type": ev.EventType,
			"subject":    ev.Subject,
			"payload":    payload,
			"created_at": ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
