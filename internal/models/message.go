package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single entry in the widget's conversation. It is rendered once when created; only the
// in-progress bot message of a streamed exchange changes afterwards, as chunks are appended to Text.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time

	StreamingState string
}

// Sender identifies who authored a message.
type Sender string

// Citation is a numbered reference attached to a bot response. Markers of the form [n] in the response
// text are resolved against the citation with the same Number.
type Citation struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

const (
	// SenderUser marks a message typed into the widget.
	SenderUser Sender = "user"
	// SenderBot marks a message produced from a server reply, including locally generated error text.
	SenderBot Sender = "bot"

	StreamingStateStreaming = "streaming"
	StreamingStateEnded     = "ended"
)

// NewMessage creates a message with a fresh ID and the current timestamp.
func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:             uuid.New().String(),
		Sender:         sender,
		Text:           text,
		Timestamp:      time.Now(),
		StreamingState: StreamingStateEnded,
	}
}

// FindCitation returns the citation numbered n, if the list has one.
func FindCitation(citations []Citation, n int) (Citation, bool) {
	for _, c := range citations {
		if c.Number == n {
			return c, true
		}
	}
	return Citation{}, false
}
