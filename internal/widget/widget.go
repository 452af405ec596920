// Package widget implements the chat widget controller. It captures user input, sends it to the chat
// backend, consumes a buffered or streamed reply, and drives a View with the rendered result. It also
// runs the guarded log refresh action.
//
// The controller owns no rendering surface. Every visible change goes through View, in call order, so a
// front end that applies View calls on a single event loop gets the same ordering guarantees as the
// browser widget this replaces.
package widget

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/MegaGrindStone/chatwidget/internal/render"
)

// Backend is the chat server as seen by the widget.
type Backend interface {
	Chat(ctx context.Context, message string) (string, error)
	Trigger(ctx context.Context, message string) error
	Stream(ctx context.Context, message string) iter.Seq2[models.StreamEvent, error]
	RefreshLogs(ctx context.Context) (models.RefreshLogsResponse, error)
}

// View is the rendering surface driven by the Controller. Markup is produced by the configured
// render.Processor.
type View interface {
	AppendMessage(msg models.Message, markup string)
	UpdateMessage(msg models.Message, markup string)
	ClearInput()
	SetInputEnabled(enabled bool)
	ShowTypingIndicator()
	RemoveTypingIndicator()
	SetRefreshLabel(label string)
}

// Mode selects how replies are consumed.
type Mode string

// Controller is the chat widget controller. It is safe to call from multiple goroutines; at most one
// chat exchange and one log refresh run at a time.
type Controller struct {
	backend   Backend
	view      View
	processor render.Processor
	mode      Mode

	busy       atomic.Bool
	refreshing atomic.Bool

	logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

const (
	// ModeBuffered sends POST /api/chat and renders the single JSON reply.
	ModeBuffered Mode = "buffered"
	// ModeStreaming renders chunks from the GET /api/chat event stream.
	ModeStreaming Mode = "streaming"
)

// User-visible texts.
const (
	FallbackErrorText     = "Sorry, I encountered an error. Please try again."
	StreamErrorText       = "Sorry, an error occurred while generating the response."
	RefreshLabel          = "Refresh Logs"
	RefreshingLabel       = "Refreshing logs..."
	RefreshSuccessText    = "Logs refreshed successfully."
	RefreshFailurePrefix  = "Failed to refresh logs: "
	RefreshUnknownFailure = "unknown error"
	RefreshErrorText      = "Error refreshing logs. Please try again."
)

const errLoggerKey = "err"

var (
	// ErrRequestInFlight is returned by Submit while an earlier exchange is still running.
	ErrRequestInFlight = errors.New("a chat request is already in flight")
	// ErrRefreshInFlight is returned by RefreshLogs while an earlier refresh is still running.
	ErrRefreshInFlight = errors.New("a log refresh is already in flight")
)

// WithMode sets the reply mode. The default is ModeStreaming.
func WithMode(mode Mode) Option {
	return func(c *Controller) {
		c.mode = mode
	}
}

// WithProcessor sets the text processor. The default is render.Plain.
func WithProcessor(p render.Processor) Option {
	return func(c *Controller) {
		c.processor = p
	}
}

// WithLogger sets the logger that receives transport diagnostics hidden from the user.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a Controller that talks to backend and renders into view.
func New(backend Backend, view View, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		view:      view,
		processor: render.Plain{},
		mode:      ModeStreaming,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("module", "widget"))
	return c
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBuffered:
		return ModeBuffered, nil
	case ModeStreaming:
		return ModeStreaming, nil
	default:
		return "", errors.New("unknown mode: " + s)
	}
}

// Mode returns the configured reply mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// InputEnabled reports whether the controller accepts a new submission.
func (c *Controller) InputEnabled() bool {
	return !c.busy.Load()
}

// Refreshing reports whether a log refresh is outstanding.
func (c *Controller) Refreshing() bool {
	return c.refreshing.Load()
}

// Submit sends input as one chat exchange and blocks until the exchange ends. Input that is empty after
// trimming is ignored without error. Failures are rendered into the view rather than returned; the only
// error is ErrRequestInFlight. Input controls are re-enabled on every path.
func (c *Controller) Submit(ctx context.Context, input string) error {
	message := strings.TrimSpace(input)
	if message == "" {
		return nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrRequestInFlight
	}

	c.appendMessage(models.NewMessage(models.SenderUser, message), nil)
	c.view.ClearInput()
	c.view.SetInputEnabled(false)
	c.view.ShowTypingIndicator()

	ex := &exchange{c: c, typing: true}
	defer ex.finish()

	switch c.mode {
	case ModeBuffered:
		ex.buffered(ctx, message)
	default:
		ex.streaming(ctx, message)
	}
	return nil
}

// RefreshLogs runs the log refresh action and blocks until it completes. A call made while another
// refresh is outstanding returns ErrRefreshInFlight and sends no request. The refresh label is always
// restored.
func (c *Controller) RefreshLogs(ctx context.Context) error {
	if !c.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInFlight
	}
	defer c.refreshing.Store(false)

	c.view.SetRefreshLabel(RefreshingLabel)
	defer c.view.SetRefreshLabel(RefreshLabel)

	res, err := c.backend.RefreshLogs(ctx)
	if err != nil {
		c.logger.Error("Failed to refresh logs", slog.String(errLoggerKey, err.Error()))
		c.appendMessage(models.NewMessage(models.SenderBot, RefreshErrorText), nil)
		return nil
	}

	text := RefreshSuccessText
	switch {
	case res.Succeeded():
		if res.Message != "" {
			text = res.Message
		}
	default:
		detail := res.Message
		if detail == "" {
			detail = RefreshUnknownFailure
		}
		text = RefreshFailurePrefix + detail
		c.logger.Warn("Log refresh reported failure",
			slog.String("status", res.Status),
			slog.String("message", res.Message))
	}
	c.appendMessage(models.NewMessage(models.SenderBot, text), nil)
	return nil
}

func (c *Controller) appendMessage(msg models.Message, citations []models.Citation) {
	c.view.AppendMessage(msg, c.processor.Process(msg.Text, citations))
}
