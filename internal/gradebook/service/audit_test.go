package service_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestAuditService_WritesOnStop(t *testing.T) {
	s := newTestStore(t)
	audit := service.NewAuditService(s, slogx.Discard(), 8)
	audit.Start()

	audit.Record(t.Context(), 1, service.ActionLogin, "10.0.0.1")
	audit.Record(t.Context(), 2, service.ActionLogout, "")
	audit.Stop()

	entries, err := audit.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.ElementsMatch(t, []string{service.ActionLogin, service.ActionLogout}, actionsOf(entries))
}

func TestAuditService_DropsWhenFull(t *testing.T) {
	s := newTestStore(t)
	audit := service.NewAuditService(s, slogx.Discard(), 1)

	// Not started yet, so the second entry finds the queue full.
	audit.Record(t.Context(), 1, "first", "")
	audit.Record(t.Context(), 1, "second", "")

	audit.Start()
	audit.Stop()

	entries, err := audit.List(t.Context(), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"first"}, actionsOf(entries))
}

func TestAuditService_AfterStop(t *testing.T) {
	s := newTestStore(t)
	audit := service.NewAuditService(s, slogx.Discard(), 4)
	audit.Start()
	audit.Stop()

	audit.Record(context.Background(), 1, "late", "")
	audit.Stop()

	entries, err := audit.List(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAuditService_StoreFailureIsSwallowed(t *testing.T) {
	s := newTestStore(t)
	audit := service.NewAuditService(s, slogx.Discard(), 4)
	require.NoError(t, s.Close())

	audit.Start()
	require.NotPanics(t, func() {
		audit.Record(t.Context(), 1, service.ActionLogin, "")
		audit.Stop()
	})
}

// countingHandler counts records whose message mentions a dropped entry.
type countingHandler struct{ dropped *atomic.Int64 }

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h countingHandler) WithGroup(string) slog.Handler            { return h }

func (h countingHandler) Handle(_ context.Context, r slog.Record) error {
	if strings.Contains(r.Message, "dropped") {
		h.dropped.Add(1)
	}
	return nil
}

func TestAuditService_RecordRacingStop(t *testing.T) {
	const n = 200

	s := newTestStore(t)
	audit := service.NewAuditService(s, slogx.Discard(), n)
	audit.Start()

	var dropped atomic.Int64
	ctx := slogx.WithContext(t.Context(), slog.New(countingHandler{dropped: &dropped}))

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			audit.Record(ctx, int64(i+1), service.ActionLogin, "")
		}()
	}
	audit.Stop()
	wg.Wait()

	entries, err := audit.List(t.Context(), n)
	require.NoError(t, err)
	require.Equal(t, n, len(entries)+int(dropped.Load()), "every entry is written or reported as dropped")
}
