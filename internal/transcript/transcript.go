// Package transcript models the tail of an agent conversation as an ordered
// sequence of messages, and provides the bounded windowing used by the
// completion moderator. Messages are never loaded lazily beyond the window.
package transcript

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system", "tool"
	Content string `json:"content"` // plain text of the turn
}

// IsUser reports whether the message was authored by the requesting party.
func (m Message) IsUser() bool {
	return m.Role == "user"
}

// Window returns the scan window over the tail: the last maxMessages entries,
// truncated further to the messages after the most recent user-authored turn
// when one exists inside that range. The user turn itself is excluded; the
// moderator judges what the agent said since the user last spoke.
func Window(tail []Message, maxMessages int) []Message {
	if maxMessages <= 0 || maxMessages > len(tail) {
		maxMessages = len(tail)
	}
	window := tail[len(tail)-maxMessages:]

	for i := len(window) - 1; i >= 0; i-- {
		if window[i].IsUser() {
			return window[i+1:]
		}
	}
	return window
}

// Text concatenates message contents with newline separators, preserving
// message order. Used for phrase scans over the whole window.
func Text(messages []Message) string {
	total := 0
	for _, m := range messages {
		total += len(m.Content) + 1
	}
	buf := make([]byte, 0, total)
	for i, m := range messages {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, m.Content...)
	}
	return string(buf)
}
