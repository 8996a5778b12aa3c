package observe

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestObserver_Formats(t *testing.T) {
	tests := []struct {
		name  string
		build func(*bytes.Buffer) *Observer
		want  string
	}{
		{"console", func(b *bytes.Buffer) *Observer { return New(b, true) }, "turn complete"},
		{"json", func(b *bytes.Buffer) *Observer { return NewJSON(b, true) }, "c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			obs := tt.build(buf)
			if obs.Log() == nil {
				t.Fatal("expected a logger")
			}

			obs.Log().Info().Str("chat", "c1").Msg("turn complete")
			if out := buf.String(); !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in output, got %q", tt.want, out)
			}
			if err := obs.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

func TestObserver_VerboseLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, true).Log()

	log.Debug().Msg("ranked memories")
	log.Info().Msg("provider ready")
	log.Warn().Msg("memory retrieval failed")
	log.Error().Msg("turn failed")

	out := buf.String()
	for _, want := range []string{"ranked memories", "provider ready", "memory retrieval failed", "turn failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose observer dropped %q: %q", want, out)
		}
	}
}

func TestObserver_LogWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	obs := New(buf, true)

	obs.Log().Info().
		Str("chat", "chat-123").
		Int("count", 5).
		Msg("memories injected")

	output := buf.String()
	if !strings.Contains(output, "memories injected") {
		t.Errorf("expected output to contain 'memories injected', got %q", output)
	}
}

func TestObserver_QuietByDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	obs := NewJSON(buf, false)

	obs.Log().Info().Msg("hidden")
	obs.Log().Warn().Str("chat", "c1").Msg("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info should be suppressed when not verbose, got %q", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("expected warning in output, got %q", output)
	}
}

func TestObserver_StartSpan(t *testing.T) {
	obs := New(&bytes.Buffer{}, false)

	ctx, span := obs.StartSpan(context.Background(), "chat.turn",
		attribute.String("chat", "c1"),
		attribute.Int("attachments", 2),
	)
	if ctx == nil || span == nil {
		t.Fatal("expected context and span")
	}
	span.End()
}

func TestDiscard(t *testing.T) {
	obs := Discard()
	obs.Log().Warn().Msg("nowhere")

	_, span := obs.StartSpan(context.Background(), "turn", attribute.String("chat", "c1"))
	span.End()
}
