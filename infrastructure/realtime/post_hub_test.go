package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

func TestHub_ServeRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewPostHub()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/social/posts/stream", nil)

	hub.Serve(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHub_StreamsOwnEventsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewPostHub()
	router := gin.New()
	router.GET("/stream", func(c *gin.Context) {
		c.Set("user_id", "user-1")
		hub.Serve(c)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ":ok\n", line)
	assert.Equal(t, 1, hub.Subscribers("user-1"))

	_ = hub.Publish(context.Background(), model.PostEvent{UserID: "user-2", PostID: "other"})
	_ = hub.Publish(context.Background(), model.PostEvent{Type: model.PostEventType, UserID: "user-1", PostID: "p1", Status: model.PostStatusPosted})

	var lines []string
	for len(lines) < 2 {
		l, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	assert.Equal(t, "event: post_status", lines[0])
	var evt model.PostEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &evt))
	assert.Equal(t, "p1", evt.PostID)
	assert.Equal(t, model.PostStatusPosted, evt.Status)
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.PostEvent
	done   chan struct{}
	err    error
}

func (s *recordingSink) Publish(_ context.Context, evt model.PostEvent) error {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return s.err
}

func TestFanout_Broadcast(t *testing.T) {
	local := &recordingSink{}
	remote := &recordingSink{done: make(chan struct{}, 1), err: assert.AnError}
	f := NewFanout(local, remote, nil)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	msg := "youtube: upload failed"
	f.Broadcast(&model.Post{ID: "p1", UserID: "user-1", Platform: model.PlatformYouTube, Status: model.PostStatusFailed, ErrorMessage: &msg})
	f.Broadcast(nil)

	require.Len(t, local.events, 1)
	assert.Equal(t, "p1", local.events[0].PostID)
	assert.Equal(t, now, local.events[0].OccurredAt)
	require.NotNil(t, local.events[0].Error)
	assert.Equal(t, msg, *local.events[0].Error)

	select {
	case <-remote.done:
	case <-time.After(2 * time.Second):
		t.Fatal("remote sink not called")
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Len(t, remote.events, 1)
}
