package realtime

import (
	"context"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// Sink receives post status events.
type Sink interface {
	Publish(ctx context.Context, evt model.PostEvent) error
}

// Fanout delivers every post status change to the local hub synchronously and
// to remote sinks (Pub/Sub, Service Bus) in the background.
type Fanout struct {
	local   Sink
	remote  []Sink
	timeout time.Duration
	now     func() time.Time
}

func NewFanout(local Sink, remote ...Sink) *Fanout {
	f := &Fanout{local: local, timeout: 10 * time.Second, now: time.Now}
	for _, s := range remote {
		if s != nil {
			f.remote = append(f.remote, s)
		}
	}
	return f
}

// Broadcast matches the publish orchestrator's broadcaster hook.
func (f *Fanout) Broadcast(p *model.Post) {
	if p == nil {
		return
	}
	evt := model.NewPostEvent(p, f.now().UTC())
	if f.local != nil {
		_ = f.local.Publish(context.Background(), evt)
	}
	for _, s := range f.remote {
		go func(s Sink) {
			ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
			defer cancel()
			if err := s.Publish(ctx, evt); err != nil {
				logger.GetLogger().WithField("error", err).
					WithField("post_id", evt.PostID).
					Warn("Error while publishing post event")
			}
		}(s)
	}
}
