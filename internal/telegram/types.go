package telegram

// User is a Telegram user or bot.
type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

// Chat identifies a conversation. Type is "private", "group", "supergroup"
// or "channel".
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is an incoming or sent Telegram message.
type Message struct {
	MessageID      int64    `json:"message_id"`
	From           *User    `json:"from,omitempty"`
	Chat           Chat     `json:"chat"`
	Date           int64    `json:"date"`
	Text           string   `json:"text,omitempty"`
	Caption        string   `json:"caption,omitempty"`
	ReplyToMessage *Message `json:"reply_to_message,omitempty"`
}

// BodyText returns the message text, falling back to the media caption.
func (m *Message) BodyText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// IsPrivate reports whether the message arrived in a one-to-one chat.
func (m *Message) IsPrivate() bool {
	return m.Chat.Type == "private"
}

// Update is one entry of a getUpdates batch.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}
