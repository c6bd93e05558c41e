package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/wierdbytes/tellm/internal/chat"
	"github.com/wierdbytes/tellm/internal/database"
	"github.com/wierdbytes/tellm/internal/telegram"
)

const startGreeting = "Бот запущен. Пишите запросы, упоминая меня в групповом чате, или отвечайте на мои сообщения."

// Sender is the outbound slice of the Telegram client the bot depends on.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (telegram.Message, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Bot persists every observed message and answers the ones directed at it
// with a model completion built from the message's reply chain.
type Bot struct {
	store      *database.Store
	dispatcher *chat.Dispatcher
	sender     Sender
	username   string
	allowed    map[int64]struct{} // empty = allow all
}

func New(store *database.Store, dispatcher *chat.Dispatcher, sender Sender, username string, allowedChatIDs []int64) *Bot {
	allowed := make(map[int64]struct{}, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = struct{}{}
	}
	return &Bot{
		store:      store,
		dispatcher: dispatcher,
		sender:     sender,
		username:   username,
		allowed:    allowed,
	}
}

// isStartCommand matches the exact /start token, optionally addressed to
// this bot as /start@<username>. "/startle" or another bot's /start are not
// commands for us.
func (b *Bot) isStartCommand(text string) bool {
	token := text
	if i := strings.IndexFunc(token, unicode.IsSpace); i >= 0 {
		token = token[:i]
	}
	if token == "/start" {
		return true
	}
	return strings.EqualFold(token, "/start@"+b.username)
}

func (b *Bot) chatAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

// HandleMessage runs the full pipeline for one inbound message: persist,
// decide whether the bot is addressed, assemble the transcript, dispatch to
// the model and deliver the (possibly chunked) answer.
func (b *Bot) HandleMessage(ctx context.Context, msg *telegram.Message) {
	if msg == nil {
		return
	}
	if !b.chatAllowed(msg.Chat.ID) {
		slog.Info("chat is not allowed", "chat_id", msg.Chat.ID)
		return
	}

	text := msg.BodyText()

	if b.isStartCommand(text) {
		if _, err := b.sender.SendMessage(ctx, msg.Chat.ID, startGreeting, msg.MessageID); err != nil {
			slog.Error("unable to send greeting", "chat_id", msg.Chat.ID, "error", err)
		}
		return
	}

	turnID := uuid.New()
	logger := slog.With("turn_id", turnID, "chat_id", msg.Chat.ID, "message_id", msg.MessageID)

	role := chat.RoleUser
	if msg.From != nil && msg.From.IsBot {
		role = chat.RoleAssistant
	}
	content := chat.StripMention(text, b.username)

	var parentID int64
	if msg.ReplyToMessage != nil {
		parentID = msg.ReplyToMessage.MessageID
	}

	metadata, err := json.Marshal(msg)
	if err != nil {
		metadata = nil
	}

	// Every message is persisted, addressed to the bot or not, so later
	// chain walks can see the whole thread.
	if err := b.store.Append(ctx, msg.Chat.ID, msg.MessageID, parentID, role, content, metadata); err != nil {
		// The turn is abandoned rather than retried: a retry would risk a
		// duplicate append for the same message id.
		logger.Error("unable to persist message", "error", err)
		return
	}

	mentioned := chat.MentionsBot(text, b.username)
	replyingToBot := msg.ReplyToMessage != nil &&
		msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.Username == b.username

	if !mentioned && !replyingToBot && !msg.IsPrivate() {
		return
	}

	if err := b.sender.SendChatAction(ctx, msg.Chat.ID, telegram.ActionTyping); err != nil {
		logger.Warn("unable to send chat action", "error", err)
	}

	replyTarget := msg.MessageID
	var transcript []chat.Turn

	if replyingToBot || (mentioned && msg.ReplyToMessage != nil) {
		var current *chat.Turn
		if role == chat.RoleUser {
			current = &chat.Turn{Role: chat.RoleUser, Content: content}
		}

		var appended bool
		transcript, appended, err = chat.BuildReplyTranscript(ctx, b.store, msg.Chat.ID, msg.ReplyToMessage.MessageID, current)
		if err != nil {
			logger.Error("unable to build transcript", "error", err)
			return
		}
		if !appended {
			// Nothing new to say ("@bot" alone): the answer replies to the
			// message the user replied to, not to the empty mention.
			replyTarget = msg.ReplyToMessage.MessageID
		}
	} else {
		transcript = chat.FreshTranscript(chat.Turn{Role: chat.RoleUser, Content: content})
	}

	if len(transcript) == 0 {
		logger.Info("empty transcript, nothing to dispatch")
		return
	}

	answer := b.dispatcher.Reply(ctx, transcript)
	b.deliver(ctx, logger, msg.Chat.ID, replyTarget, answer)
}

// deliver sends the answer in platform-sized chunks, persisting each chunk
// with its parent set to the previously sent chunk so follow-up replies to
// any chunk reconstruct the full thread.
func (b *Bot) deliver(ctx context.Context, logger *slog.Logger, chatID, replyTarget int64, answer string) {
	if answer == "" {
		return
	}

	lastID := replyTarget
	for _, chunk := range chat.SplitAnswer(answer, chat.MessageLimit) {
		sent, err := b.sender.SendMessage(ctx, chatID, chunk, lastID)
		if err != nil {
			logger.Error("unable to send answer chunk", "error", err)
			return
		}
		if err := b.store.Append(ctx, sent.Chat.ID, sent.MessageID, lastID, chat.RoleAssistant, chunk, nil); err != nil {
			// Chunks already sent stay sent; only the log entry is lost.
			logger.Error("unable to persist answer chunk", "sent_message_id", sent.MessageID, "error", err)
		}
		lastID = sent.MessageID
	}
}
