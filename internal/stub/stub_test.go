package stub_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/MegaGrindStone/chatwidget/internal/stub"
)

func TestHandleChat(t *testing.T) {
	srv := stub.New()

	tests := []struct {
		name       string
		method     string
		url        string
		body       string
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "Invalid method",
			method:     http.MethodDelete,
			url:        "/api/chat",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "Empty message",
			method:     http.MethodPost,
			url:        "/api/chat",
			body:       `{"message":""}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"No message provided"},
		},
		{
			name:       "Buffered reply",
			method:     http.MethodPost,
			url:        "/api/chat",
			body:       `{"message":"hello"}`,
			wantStatus: http.StatusOK,
			wantBody:   []string{`"response":"You said: hello [1]"`},
		},
		{
			name:       "Stream without message",
			method:     http.MethodGet,
			url:        "/api/chat",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Stream",
			method:     http.MethodGet,
			url:        "/api/chat?message=hello",
			wantStatus: http.StatusOK,
			wantBody: []string{
				`data: {"chunk":"You "}`,
				`data: {"chunk":"hello "}`,
				`data: {"done":true,"citations":[{"number":1,"text":"Stub knowledge base"}]}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			srv.HandleChat(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleChat() status = %v, want %v", w.Code, tt.wantStatus)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(w.Body.String(), want) {
					t.Errorf("HandleChat() body = %v, want to contain %v", w.Body.String(), want)
				}
			}
		})
	}

	if got := srv.Triggers(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("Triggers() = %v, want [hello]", got)
	}
	if got := srv.Streams(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("Streams() = %v, want [hello]", got)
	}
}

func TestHandleChatStreamFailure(t *testing.T) {
	srv := stub.New(stub.WithScript(func(string) stub.Script {
		return stub.Script{Chunks: []string{"partial"}, Fail: true}
	}))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/chat?message=x")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(string(body), `data: {"error":true}`) {
		t.Errorf("body = %q, want error terminal event", body)
	}
}

func TestHandleRefreshLogs(t *testing.T) {
	srv := stub.New(stub.WithRefreshResponse(models.RefreshLogsResponse{Status: "error", Message: "boom"}))

	req := httptest.NewRequest(http.MethodGet, "/api/refresh-logs", nil)
	w := httptest.NewRecorder()
	srv.HandleRefreshLogs(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("HandleRefreshLogs() status = %v, want %v", w.Code, http.StatusMethodNotAllowed)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/refresh-logs", nil)
	w = httptest.NewRecorder()
	srv.HandleRefreshLogs(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("HandleRefreshLogs() status = %v, want %v", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"status":"error"`) {
		t.Errorf("HandleRefreshLogs() body = %v, want error status", w.Body.String())
	}
	if srv.RefreshCount() != 1 {
		t.Errorf("RefreshCount() = %d, want 1", srv.RefreshCount())
	}
}
