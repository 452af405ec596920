package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/MegaGrindStone/chatwidget/internal/render"
	"github.com/MegaGrindStone/chatwidget/internal/widget"
)

// LineView implements widget.View for plain output streams. User messages are echoed when EchoUser is
// set. Bot messages are held until they are final, that is until input is re-enabled, the refresh label is
// restored, or Flush is called, and are then printed once.
type LineView struct {
	EchoUser bool

	mu      sync.Mutex
	w       io.Writer
	styles  render.Styles
	pending []pendingMessage
}

type pendingMessage struct {
	id     string
	markup string
}

// NewLineView creates a LineView writing to w.
func NewLineView(w io.Writer, styles render.Styles) *LineView {
	return &LineView{w: w, styles: styles}
}

// AppendMessage implements widget.View.
func (v *LineView) AppendMessage(msg models.Message, markup string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if msg.Sender == models.SenderUser {
		if v.EchoUser {
			fmt.Fprintf(v.w, "> %s\n", render.Terminal(markup, v.styles))
		}
		return
	}
	v.pending = append(v.pending, pendingMessage{id: msg.ID, markup: markup})
}

// UpdateMessage implements widget.View.
func (v *LineView) UpdateMessage(msg models.Message, markup string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.pending {
		if v.pending[i].id == msg.ID {
			v.pending[i].markup = markup
			return
		}
	}
}

// ClearInput implements widget.View.
func (v *LineView) ClearInput() {}

// SetInputEnabled implements widget.View.
func (v *LineView) SetInputEnabled(enabled bool) {
	if enabled {
		v.Flush()
	}
}

// ShowTypingIndicator implements widget.View.
func (v *LineView) ShowTypingIndicator() {}

// RemoveTypingIndicator implements widget.View.
func (v *LineView) RemoveTypingIndicator() {}

// SetRefreshLabel implements widget.View.
func (v *LineView) SetRefreshLabel(label string) {
	if label == widget.RefreshLabel {
		v.Flush()
	}
}

// Flush prints every held bot message.
func (v *LineView) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, p := range v.pending {
		fmt.Fprintln(v.w, render.Terminal(p.markup, v.styles))
	}
	v.pending = nil
}
