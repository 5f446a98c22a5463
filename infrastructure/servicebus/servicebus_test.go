package servicebus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

func TestNewPostEventSender_Disabled(t *testing.T) {
	assert.Nil(t, NewPostEventSender(nil, "post-events"))

	var s *PostEventSender
	assert.NoError(t, s.Publish(context.Background(), model.PostEvent{}))
}

func TestNewServiceBus_RequiresNamespace(t *testing.T) {
	_, err := NewServiceBus(context.Background(), "")
	assert.Error(t, err)
}

func TestNewMessage(t *testing.T) {
	msg, err := newMessage(model.PostEvent{
		PostID: "p1", UserID: "user-1", Platform: model.PlatformTikTok, Status: model.PostStatusFailed,
	})
	require.NoError(t, err)

	require.NotNil(t, msg.Subject)
	assert.Equal(t, "tiktok.failed", *msg.Subject)
	require.NotNil(t, msg.MessageID)
	assert.Equal(t, "p1:failed", *msg.MessageID)
	assert.Equal(t, "user-1", msg.ApplicationProperties["user_id"])

	var evt model.PostEvent
	require.NoError(t, json.Unmarshal(msg.Body, &evt))
	assert.Equal(t, model.PlatformTikTok, evt.Platform)
}
