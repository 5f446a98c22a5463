package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// NewServiceBus connects to <namespace>.servicebus.windows.net with the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(fmt.Sprintf("%s.servicebus.windows.net", namespace), cred, nil)
}

// PostEventSender sends post status events to a Service Bus queue.
type PostEventSender struct {
	client *azservicebus.Client
	queue  string
}

func NewPostEventSender(client *azservicebus.Client, queue string) *PostEventSender {
	if client == nil || queue == "" {
		return nil
	}
	return &PostEventSender{client: client, queue: queue}
}

func (s *PostEventSender) Publish(ctx context.Context, evt model.PostEvent) error {
	if s == nil {
		return nil
	}
	msg, err := newMessage(evt)
	if err != nil {
		return err
	}
	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}()
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func newMessage(evt model.PostEvent) (*azservicebus.Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	subject := string(evt.Platform) + "." + string(evt.Status)
	messageID := evt.PostID + ":" + string(evt.Status)
	return &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		MessageID:   &messageID,
		ApplicationProperties: map[string]interface{}{
			"user_id":  evt.UserID,
			"platform": string(evt.Platform),
		},
	}, nil
}
