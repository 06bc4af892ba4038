package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seiir/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seiir.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, result.Lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}
}

func TestTailFiltersByRun(t *testing.T) {
	path := writeLog(t, `{"msg":"stage started","run_id":"r1"}
{"msg":"stage started","run_id":"r2"}
{"msg":"stage completed","run_id":"r1"}
{"msg":"stage failed","run_id":"r1"}
`)
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 5, Match: logs.MatchRun("r1")})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 3 {
		t.Fatalf("expected 3 r1 lines, got %#v", result.Lines)
	}
	if logs.MatchRun(" ") != nil {
		t.Fatal("blank run id should not filter")
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 3})
	if err != nil || len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %#v, %v", result, err)
	}
}

func TestTailOffsetPastEnd(t *testing.T) {
	path := writeLog(t, "a\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 100})
	if err != nil || len(result.Lines) != 0 || result.Offset != 2 {
		t.Fatalf("expected resume at end, got %#v, %v", result, err)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}
