package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"cloud.google.com/go/pubsub"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

// PostEventPublisher publishes post status events to a Pub/Sub topic.
type PostEventPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic

	mu    sync.Mutex
	ready bool
}

// NewPostEventPublisher returns nil when the client is unavailable, so callers
// can pass the result straight to the fan-out.
func NewPostEventPublisher(client *pubsub.Client, topicName string) *PostEventPublisher {
	if client == nil || topicName == "" {
		return nil
	}
	return &PostEventPublisher{client: client, topic: client.Topic(topicName)}
}

// ensureTopic creates the topic on first use if it doesn't exist.
func (p *PostEventPublisher) ensureTopic(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	exists, err := p.topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topic.ID()).Info("Topic doesn't exist - creating it")
		if _, err := p.client.CreateTopic(ctx, p.topic.ID()); err != nil {
			return err
		}
	}
	p.ready = true
	return nil
}

func (p *PostEventPublisher) Publish(ctx context.Context, evt model.PostEvent) error {
	if p == nil {
		return nil
	}
	if err := p.ensureTopic(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	serverID, err := p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"platform": string(evt.Platform),
			"status":   string(evt.Status),
		},
	}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("post_id", evt.PostID).Debug("Post event published")
	return nil
}

func (p *PostEventPublisher) Stop() {
	if p != nil {
		p.topic.Stop()
	}
}
