package behavior

// DefaultHistoryLimit bounds the reasoned conversation log.
const DefaultHistoryLimit = 20

// ConversationLog keeps the newest entries of a conversation, dropping the
// oldest once the limit is reached.
type ConversationLog struct {
	limit   int
	entries []Utterance
}

func NewConversationLog(limit int) *ConversationLog {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ConversationLog{limit: limit, entries: make([]Utterance, 0, limit+1)}
}

func (l *ConversationLog) Append(u Utterance) {
	l.entries = append(l.entries, u)
	if over := len(l.entries) - l.limit; over > 0 {
		n := copy(l.entries, l.entries[over:])
		clear(l.entries[n:])
		l.entries = l.entries[:n]
	}
}

// Entries returns a copy, oldest first.
func (l *ConversationLog) Entries() []Utterance {
	return append([]Utterance(nil), l.entries...)
}

func (l *ConversationLog) Limit() int { return l.limit }
