package tui

import (
	"sync"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages delivered to Model by ProgramView. Each corresponds to one widget.View call.
type (
	appendMessageMsg struct {
		msg    models.Message
		markup string
	}
	updateMessageMsg struct {
		msg    models.Message
		markup string
	}
	clearInputMsg   struct{}
	inputEnabledMsg bool
	typingMsg       bool
	refreshLabelMsg string
	statusMsg       string
)

// ProgramView implements widget.View by forwarding every call to a running Bubble Tea program. The
// program applies them one at a time on its event loop, in the order they were made.
type ProgramView struct {
	mu sync.RWMutex
	p  *tea.Program
}

// NewProgramView creates a ProgramView. Calls made before Attach are dropped.
func NewProgramView() *ProgramView {
	return &ProgramView{}
}

// Attach connects the view to p.
func (v *ProgramView) Attach(p *tea.Program) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.p = p
}

func (v *ProgramView) send(msg tea.Msg) {
	v.mu.RLock()
	p := v.p
	v.mu.RUnlock()
	if p == nil {
		return
	}
	p.Send(msg)
}

// AppendMessage implements widget.View.
func (v *ProgramView) AppendMessage(msg models.Message, markup string) {
	v.send(appendMessageMsg{msg: msg, markup: markup})
}

// UpdateMessage implements widget.View.
func (v *ProgramView) UpdateMessage(msg models.Message, markup string) {
	v.send(updateMessageMsg{msg: msg, markup: markup})
}

// ClearInput implements widget.View.
func (v *ProgramView) ClearInput() {
	v.send(clearInputMsg{})
}

// SetInputEnabled implements widget.View.
func (v *ProgramView) SetInputEnabled(enabled bool) {
	v.send(inputEnabledMsg(enabled))
}

// ShowTypingIndicator implements widget.View.
func (v *ProgramView) ShowTypingIndicator() {
	v.send(typingMsg(true))
}

// RemoveTypingIndicator implements widget.View.
func (v *ProgramView) RemoveTypingIndicator() {
	v.send(typingMsg(false))
}

// SetRefreshLabel implements widget.View.
func (v *ProgramView) SetRefreshLabel(label string) {
	v.send(refreshLabelMsg(label))
}
