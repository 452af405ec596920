// Package stub serves a scripted stand-in for the chat backend's HTTP endpoints. It produces canned replies
// in both buffered and streamed form and a configurable log refresh result. It has no chat logic of its own.
package stub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

// Script describes how the stub answers one message.
type Script struct {
	Chunks    []string
	Citations []models.Citation

	// Fail ends the stream with an {error:true} terminal event instead of {done:true}.
	Fail bool
	// Truncate closes the stream without any terminal event.
	Truncate bool
}

// Server implements the backend endpoints from scripts.
type Server struct {
	script     func(message string) Script
	refresh    models.RefreshLogsResponse
	chunkDelay time.Duration

	mu       sync.Mutex
	triggers []string
	streams  []string
	refreshN int

	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

const errLoggerKey = "err"

// WithScript sets the function that decides how each message is answered.
func WithScript(script func(message string) Script) Option {
	return func(s *Server) {
		s.script = script
	}
}

// WithRefreshResponse sets the reply of POST /api/refresh-logs.
func WithRefreshResponse(res models.RefreshLogsResponse) Option {
	return func(s *Server) {
		s.refresh = res
	}
}

// WithChunkDelay pauses between streamed chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) {
		s.chunkDelay = d
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server. Without WithScript it echoes each message back word by word, citing one source.
func New(opts ...Option) *Server {
	s := &Server{
		script: EchoScript,
		refresh: models.RefreshLogsResponse{
			Status:  models.RefreshStatusSuccess,
			Message: "Logs refreshed successfully.",
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "stub"))
	return s
}

// EchoScript answers with the message echoed back in word-sized chunks followed by a citation marker.
func EchoScript(message string) Script {
	text := "You said: " + message + " [1]"
	words := strings.SplitAfter(text, " ")
	return Script{
		Chunks:    words,
		Citations: []models.Citation{{Number: 1, Text: "Stub knowledge base"}},
	}
}

// Handler returns a mux serving /api/chat and /api/refresh-logs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.HandleChat)
	mux.HandleFunc("/api/refresh-logs", s.HandleRefreshLogs)
	return mux
}

// HandleChat answers POST /api/chat with a buffered reply and GET /api/chat?message= with an event stream.
func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleChatPost(w, r)
	case http.MethodGet:
		s.handleChatStream(w, r)
	default:
		s.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRefreshLogs answers POST /api/refresh-logs with the configured response.
func (s *Server) HandleRefreshLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	s.refreshN++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, s.refresh)
}

// Triggers returns the messages received on POST /api/chat, in order.
func (s *Server) Triggers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.triggers...)
}

// Streams returns the messages for which an event stream was opened, in order.
func (s *Server) Streams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.streams...)
}

// RefreshCount returns how many log refreshes were requested.
func (s *Server) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshN
}

func (s *Server) handleChatPost(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("Failed to decode request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No message provided"})
		return
	}

	s.mu.Lock()
	s.triggers = append(s.triggers, req.Message)
	s.mu.Unlock()

	script := s.script(req.Message)
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: strings.Join(script.Chunks, "")})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	if msg == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.streams = append(s.streams, msg)
	s.mu.Unlock()

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		s.logger.Error("Failed to upgrade to event stream", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	script := s.script(msg)
	for _, chunk := range script.Chunks {
		if err := s.send(sess, models.ChunkEvent(chunk)); err != nil {
			s.logger.Error("Failed to send chunk", slog.String(errLoggerKey, err.Error()))
			return
		}
		if s.chunkDelay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.chunkDelay):
			}
		}
	}

	if script.Truncate {
		return
	}

	terminal := models.StreamEvent{Done: true, Citations: script.Citations}
	if script.Fail {
		terminal = models.StreamEvent{Error: true}
	}
	if err := s.send(sess, terminal); err != nil {
		s.logger.Error("Failed to send terminal event", slog.String(errLoggerKey, err.Error()))
	}
}

func (s *Server) send(sess *sse.Session, ev models.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := &sse.Message{ID: sse.ID(uuid.New().String())}
	msg.AppendData(string(data))
	if err := sess.Send(msg); err != nil {
		return err
	}
	return sess.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
