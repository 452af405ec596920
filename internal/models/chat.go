package models

// ChatRequest is the body of POST /api/chat. In streaming mode the same body is sent as a fire-and-forget
// trigger while the reply arrives on the event stream.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the buffered reply of POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// StreamEvent is one JSON payload delivered on the GET /api/chat event stream. An exchange delivers zero or
// more chunk events followed by exactly one terminal event, which is either Done (optionally carrying
// Citations) or Error.
type StreamEvent struct {
	Chunk     *string    `json:"chunk,omitempty"`
	Done      bool       `json:"done,omitempty"`
	Error     bool       `json:"error,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// RefreshLogsResponse is the reply of POST /api/refresh-logs.
type RefreshLogsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RefreshStatusSuccess is the only status value treated as a successful log refresh.
const RefreshStatusSuccess = "success"

// ChunkEvent builds a chunk event carrying text.
func ChunkEvent(text string) StreamEvent {
	return StreamEvent{Chunk: &text}
}

// Terminal reports whether the event ends the exchange.
func (e StreamEvent) Terminal() bool {
	return e.Done || e.Error
}

// Succeeded reports whether the server reported a successful refresh.
func (r RefreshLogsResponse) Succeeded() bool {
	return r.Status == RefreshStatusSuccess
}
