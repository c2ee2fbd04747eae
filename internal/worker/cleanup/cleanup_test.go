package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// mockSessionDeleter はExpiredSessionDeleterのモック実装。
type mockSessionDeleter struct {
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
	calls           atomic.Int64
}

func (m *mockSessionDeleter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.calls.Add(1)
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockSessionDeleter{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	job := NewCleanupJob(deleter, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleter.calls.Load() != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", deleter.calls.Load())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["deleted_count"] != float64(3) {
		t.Errorf("deleted_count = %v, want 3", entry["deleted_count"])
	}
}

func TestCleanupJob_Run_UsesCurrentTime(t *testing.T) {
	var got time.Time
	deleter := &mockSessionDeleter{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			got = now
			return 0, nil
		},
	}
	job := NewCleanupJob(deleter, newTestLogger(&bytes.Buffer{}))

	fixed := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.Equal(fixed) {
		t.Errorf("DeleteExpired called with %v, want %v", got, fixed)
	}
}

func TestCleanupJob_Run_NoExpiredSessions_Succeeds(t *testing.T) {
	deleter := &mockSessionDeleter{}
	job := NewCleanupJob(deleter, newTestLogger(&bytes.Buffer{}))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected no error for empty delete, got %v", err)
	}
}

func TestCleanupJob_Run_DeleteFails_ReturnsError(t *testing.T) {
	deleter := &mockSessionDeleter{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	job := NewCleanupJob(deleter, newTestLogger(&bytes.Buffer{}))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when delete fails")
	}
}

func TestCleanupJob_Start_StopsOnContextCancel(t *testing.T) {
	deleter := &mockSessionDeleter{}
	job := NewCleanupJob(deleter, newTestLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回目の実行を待つ
	deadline := time.After(time.Second)
	for deleter.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial cleanup run did not happen")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not stop after context cancel")
	}
}
