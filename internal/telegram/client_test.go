package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getMe", r.URL.Path)
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":42,"is_bot":true,"username":"tellm_bot"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tellm_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestGetMeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getUpdates", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("offset"))
		assert.Equal(t, "30", r.URL.Query().Get("timeout"))
		_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":5,"message":{"message_id":3,"chat":{"id":100,"type":"group"},"text":"hi","reply_to_message":{"message_id":2,"chat":{"id":100,"type":"group"}}}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	updates, err := c.GetUpdates(context.Background(), 5, 30)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, int64(3), updates[0].Message.MessageID)
	require.NotNil(t, updates[0].Message.ReplyToMessage)
	assert.Equal(t, int64(2), updates[0].Message.ReplyToMessage.MessageID)
}

func TestSendMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":200,"chat":{"id":100,"type":"group"},"text":"answer"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	sent, err := c.SendMessage(context.Background(), 100, "answer", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sent.MessageID)
	assert.Equal(t, sendMessageRequest{ChatID: 100, Text: "answer", ReplyToMessageID: 3}, got)
}

func TestSendChatAction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sendChatAction", r.URL.Path)
		assert.Equal(t, "typing", r.URL.Query().Get("action"))
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	require.NoError(t, c.SendChatAction(context.Background(), 100, ActionTyping))
}

func TestBodyTextFallsBackToCaption(t *testing.T) {
	msg := &Message{Caption: "a photo"}
	assert.Equal(t, "a photo", msg.BodyText())

	msg.Text = "real text"
	assert.Equal(t, "real text", msg.BodyText())
}
