package database

import (
	"time"

	"gorm.io/datatypes"
)

// Message is one row of the append-only message log. Rows are written exactly
// once, when their originating event is observed, and never updated or
// deleted.
//
// (ChatID, MessageID) is expected to be unique within a chat. The index is
// non-unique on purpose: the platform assigns the ids, and a duplicate
// append is a caller bug rather than something the schema rejects.
type Message struct {
	ID uint `gorm:"primaryKey"`

	ChatID    int64 `gorm:"index:idx_chat_message;not null"`
	MessageID int64 `gorm:"index:idx_chat_message;not null"`

	// ReplyToMessageID is zero for chain roots.
	ReplyToMessageID int64

	Role    string `gorm:"size:16;not null"` // "user" or "assistant"
	Content string

	CreatedAt time.Time

	// Metadata holds the raw platform payload the row was derived from.
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}
