package chat

// MessageLimit is Telegram's maximum length of a single message, in
// characters.
const MessageLimit = 4096

// SplitAnswer breaks text into ordered chunks of at most limit characters.
// Splitting counts runes, not bytes, so multi-byte text never exceeds the
// platform limit.
func SplitAnswer(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
