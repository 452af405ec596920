package tui_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/chatwidget/internal/client"
	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/MegaGrindStone/chatwidget/internal/render"
	"github.com/MegaGrindStone/chatwidget/internal/stub"
	"github.com/MegaGrindStone/chatwidget/internal/tui"
	"github.com/MegaGrindStone/chatwidget/internal/widget"
)

func TestLineViewAgainstStub(t *testing.T) {
	srv := stub.New(
		stub.WithScript(func(string) stub.Script {
			return stub.Script{
				Chunks:    []string{"Read https://example.com", " for details [1]."},
				Citations: []models.Citation{{Number: 1, Text: "Example docs"}},
			}
		}),
		stub.WithRefreshResponse(models.RefreshLogsResponse{Status: "error", Message: "Log group not found"}),
	)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := client.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		mode widget.Mode
		want string
	}{
		{
			name: "Streaming",
			mode: widget.ModeStreaming,
			want: "> hi\nRead https://example.com for details [1: Example docs].\n",
		},
		{
			name: "Buffered",
			mode: widget.ModeBuffered,
			want: "> hi\nRead https://example.com for details [1].\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			view := tui.NewLineView(&out, render.PlainStyles())
			view.EchoUser = true
			ctrl := widget.New(c, view, widget.WithMode(tt.mode))

			if err := ctrl.Submit(context.Background(), " hi "); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}

	t.Run("Refresh logs", func(t *testing.T) {
		var out bytes.Buffer
		view := tui.NewLineView(&out, render.PlainStyles())
		ctrl := widget.New(c, view)

		if err := ctrl.RefreshLogs(context.Background()); err != nil {
			t.Fatalf("RefreshLogs() error = %v", err)
		}
		want := widget.RefreshFailurePrefix + "Log group not found\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})
}
