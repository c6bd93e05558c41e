package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
)

// Role identifies the author of a turn as seen by the completion API.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role/content entry of a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StripMention removes every case-insensitive occurrence of "@username" from
// text and trims the result. Stripping happens once, before the message is
// persisted, so the stored log and the model-visible transcript agree.
//
// The scan matches rune by rune against the original text: case folding can
// change byte lengths (Kelvin sign, dotted capital I), so offsets found in a
// lowercased copy must never be applied to the original.
func StripMention(text, username string) string {
	if username == "" {
		return strings.TrimSpace(text)
	}
	mention := []rune("@" + username)

	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); {
		if foldHasPrefix(runes[i:], mention) {
			i += len(mention)
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return strings.TrimSpace(b.String())
}

func foldHasPrefix(runes, prefix []rune) bool {
	if len(runes) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if unicode.ToLower(runes[i]) != unicode.ToLower(r) {
			return false
		}
	}
	return true
}

// MentionsBot reports whether text contains "@username", case-insensitively.
func MentionsBot(text, username string) bool {
	if username == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(username))
}

// AssembleTranscript maps a root-first id chain to stored turns, in order.
// Ids with no stored record are dropped, never synthesized as empty turns.
func AssembleTranscript(ctx context.Context, lookup TurnLookup, chatID int64, chain []int64) ([]Turn, error) {
	if len(chain) == 0 {
		return nil, nil
	}

	stored, err := lookup.TurnsByIDs(ctx, chatID, chain)
	if err != nil {
		return nil, err
	}

	transcript := make([]Turn, 0, len(chain))
	for _, id := range chain {
		if turn, ok := stored[id]; ok {
			transcript = append(transcript, turn)
		}
	}
	return transcript, nil
}

// BuildReplyTranscript reconstructs the chain ending at replyToID and
// appends current as the newest turn. current is not appended when it is nil
// or its content is empty; the returned bool reports whether it was.
//
// A chain that hits the hop limit is truncated to what was collected, not
// treated as fatal.
func BuildReplyTranscript(ctx context.Context, store Store, chatID, replyToID int64, current *Turn) ([]Turn, bool, error) {
	chain, err := Reconstruct(ctx, store, chatID, replyToID)
	if err != nil {
		if !errors.Is(err, ErrChainTooLong) {
			return nil, false, err
		}
		slog.Warn("reply chain truncated", "chat_id", chatID, "start_message_id", replyToID, "collected", len(chain))
	}

	transcript, err := AssembleTranscript(ctx, store, chatID, chain)
	if err != nil {
		return nil, false, err
	}

	if current == nil || current.Content == "" {
		return transcript, false, nil
	}
	return append(transcript, *current), true, nil
}

// FreshTranscript starts a new thread from a single user turn, with no
// ancestry lookup.
func FreshTranscript(current Turn) []Turn {
	return []Turn{current}
}
