package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MegaGrindStone/chatwidget/internal/client"
	"github.com/MegaGrindStone/chatwidget/internal/stub"
)

func TestRunChatOneShot(t *testing.T) {
	ts := httptest.NewServer(stub.New().Handler())
	defer ts.Close()

	c, err := client.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		echo bool
		want string
	}{
		{
			name: "Reply only",
			want: "You said: hi [1: Stub knowledge base]\n",
		},
		{
			name: "Echo",
			echo: true,
			want: "> hi\nYou said: hi [1: Stub knowledge base]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &app{cfg: defaultConfig(), logger: slog.Default(), client: c, echo: tt.echo}

			var out bytes.Buffer
			if err := a.runChat(context.Background(), "hi", strings.NewReader(""), &out); err != nil {
				t.Fatalf("runChat() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestEchoFlag(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--echo", "--mode", "buffered"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if v, err := cmd.Flags().GetBool("echo"); err != nil || !v {
		t.Errorf("echo = %v, %v, want true", v, err)
	}

	cfg := defaultConfig()
	if err := (&flags{mode: "buffered"}).apply(cmd, &cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if cfg.Mode != "buffered" {
		t.Errorf("Mode = %q, want buffered", cfg.Mode)
	}
}
