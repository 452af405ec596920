package widget

import (
	"context"
	"log/slog"
	"strings"

	"github.com/MegaGrindStone/chatwidget/internal/models"
)

// exchange holds the state of one submit/response cycle. Citations live here rather than on the
// Controller so that each render call receives exactly the list of the exchange it belongs to.
type exchange struct {
	c *Controller

	typing    bool
	reply     *models.Message
	raw       strings.Builder
	citations []models.Citation
}

// finish restores the UI after the exchange, whatever its outcome.
func (ex *exchange) finish() {
	ex.removeTyping()
	ex.c.busy.Store(false)
	ex.c.view.SetInputEnabled(true)
}

func (ex *exchange) removeTyping() {
	if !ex.typing {
		return
	}
	ex.typing = false
	ex.c.view.RemoveTypingIndicator()
}

func (ex *exchange) buffered(ctx context.Context, message string) {
	res, err := ex.c.backend.Chat(ctx, message)
	ex.removeTyping()
	if err != nil {
		ex.c.logger.Error("Chat request failed", slog.String(errLoggerKey, err.Error()))
		ex.c.appendMessage(models.NewMessage(models.SenderBot, FallbackErrorText), nil)
		return
	}
	ex.c.appendMessage(models.NewMessage(models.SenderBot, res), nil)
}

func (ex *exchange) streaming(ctx context.Context, message string) {
	// The trigger outlives the exchange: its reply is irrelevant and closing the stream must not abort it.
	go func() {
		if err := ex.c.backend.Trigger(context.WithoutCancel(ctx), message); err != nil {
			ex.c.logger.Error("Chat trigger failed", slog.String(errLoggerKey, err.Error()))
		}
	}()

	for ev, err := range ex.c.backend.Stream(ctx, message) {
		if err != nil {
			ex.c.logger.Error("Chat stream failed", slog.String(errLoggerKey, err.Error()))
			ex.fail(FallbackErrorText)
			return
		}

		if ev.Chunk != nil {
			ex.appendChunk(*ev.Chunk)
		}
		if ev.Citations != nil {
			ex.citations = ev.Citations
			ex.rerender(models.StreamingStateStreaming)
		}
		if ev.Error {
			ex.c.logger.Warn("Chat stream reported an error")
			ex.fail(StreamErrorText)
			return
		}
		if ev.Done {
			ex.end()
			return
		}
	}

	// The stream stopped without a terminal event and without reporting why.
	ex.c.logger.Error("Chat stream closed without a terminal event")
	ex.fail(FallbackErrorText)
}

func (ex *exchange) appendChunk(chunk string) {
	if ex.reply == nil {
		ex.removeTyping()
		msg := models.NewMessage(models.SenderBot, "")
		msg.StreamingState = models.StreamingStateStreaming
		ex.reply = &msg
		ex.raw.WriteString(chunk)
		ex.reply.Text = ex.raw.String()
		ex.c.appendMessage(*ex.reply, ex.citations)
		return
	}
	ex.raw.WriteString(chunk)
	ex.rerender(models.StreamingStateStreaming)
}

// rerender renders the accumulated raw text again. Starting from raw text rather than earlier markup keeps
// links and applies citation substitution exactly once.
func (ex *exchange) rerender(state string) {
	if ex.reply == nil {
		return
	}
	ex.reply.Text = ex.raw.String()
	ex.reply.StreamingState = state
	ex.c.view.UpdateMessage(*ex.reply, ex.c.processor.Process(ex.reply.Text, ex.citations))
}

func (ex *exchange) end() {
	ex.removeTyping()
	ex.rerender(models.StreamingStateEnded)
}

// fail replaces the in-progress reply with text, or appends text as a new bot message when no chunk has
// arrived yet, so exactly one error message is shown.
func (ex *exchange) fail(text string) {
	ex.removeTyping()
	if ex.reply == nil {
		ex.c.appendMessage(models.NewMessage(models.SenderBot, text), nil)
		return
	}
	ex.raw.Reset()
	ex.raw.WriteString(text)
	ex.citations = nil
	ex.rerender(models.StreamingStateEnded)
}
