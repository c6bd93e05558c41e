package api

import "time"

// StoredMessage is one entry of the message log as exposed by the ops API.
type StoredMessage struct {
	ChatID           int64     `json:"chat_id"`
	MessageID        int64     `json:"message_id"`
	ReplyToMessageID int64     `json:"reply_to_message_id,omitempty"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
}

type GetMessagesQuery struct {
	Limit int `schema:"limit"`
}

type GetMessagesResponse struct {
	Messages []StoredMessage `json:"messages"`
}

// TranscriptTurn mirrors one role/content pair of an assembled transcript.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GetChainResponse struct {
	ChatID     int64            `json:"chat_id"`
	MessageIDs []int64          `json:"message_ids"`
	Truncated  bool             `json:"truncated"`
	Transcript []TranscriptTurn `json:"transcript"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
