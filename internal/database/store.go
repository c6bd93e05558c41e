package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wierdbytes/tellm/internal/chat"
)

// SQLite only supports one writer at a time, so appends are serialized
// behind a lock. Reads run concurrently.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Append records one observed message. Rows are immutable once written;
// calling Append twice for the same (chatID, messageID) corrupts later
// lookups, so callers must append each event exactly once.
func (s *Store) Append(ctx context.Context, chatID, messageID, replyToMessageID int64, role chat.Role, content string, metadata []byte) error {
	row := Message{
		ChatID:           chatID,
		MessageID:        messageID,
		ReplyToMessageID: replyToMessageID,
		Role:             string(role),
		Content:          content,
	}
	if metadata != nil {
		row.Metadata = datatypes.JSON(metadata)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("appending message %d to chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// ParentID returns the reply-parent of a message. The bool is false when the
// message is unknown or is a chain root.
func (s *Store) ParentID(ctx context.Context, chatID, messageID int64) (int64, bool, error) {
	var row Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND message_id = ?", chatID, messageID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("looking up message %d in chat %d: %w", messageID, chatID, err)
	}
	if row.ReplyToMessageID == 0 {
		return 0, false, nil
	}
	return row.ReplyToMessageID, true, nil
}

// TurnsByIDs fetches the stored role/content for each id that exists.
// Missing ids are absent from the result; callers handle partial maps.
func (s *Store) TurnsByIDs(ctx context.Context, chatID int64, messageIDs []int64) (map[int64]chat.Turn, error) {
	if len(messageIDs) == 0 {
		return map[int64]chat.Turn{}, nil
	}

	var rows []Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND message_id IN ?", chatID, messageIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetching %d messages from chat %d: %w", len(messageIDs), chatID, err)
	}

	turns := make(map[int64]chat.Turn, len(rows))
	for _, row := range rows {
		turns[row.MessageID] = chat.Turn{Role: chat.Role(row.Role), Content: row.Content}
	}
	return turns, nil
}

// Recent returns the newest limit messages of a chat, oldest first.
func (s *Store) Recent(ctx context.Context, chatID int64, limit int) ([]Message, error) {
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetching recent messages from chat %d: %w", chatID, err)
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
