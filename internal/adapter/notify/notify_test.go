package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(autoConfirm bool) (LogNotifier, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewLogNotifier(log, autoConfirm), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestNotify(t *testing.T) {
	tests := []struct {
		kind  domain.NotificationKind
		level string
	}{
		{domain.NotifySuccess, "INFO"},
		{domain.NotifyWarning, "WARN"},
		{domain.NotifyError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			n, buf := newTestNotifier(false)
			n.Notify(t.Context(), tt.kind, "hello")

			rec := lastRecord(t, buf)
			assert.Equal(t, tt.level, rec["level"])
			assert.Equal(t, "hello", rec["msg"])
			assert.Equal(t, string(tt.kind), rec["kind"])
		})
	}
}

func TestConfirm(t *testing.T) {
	n, buf := newTestNotifier(true)
	assert.True(t, n.Confirm(t.Context(), "delete Sedan X?"))
	assert.Equal(t, true, lastRecord(t, buf)["confirmed"])

	n, _ = newTestNotifier(false)
	assert.False(t, n.Confirm(t.Context(), "delete Sedan X?"))
}
