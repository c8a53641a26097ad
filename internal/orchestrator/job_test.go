package orchestrator

import (
    "errors"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/local/pdftables/internal/store"
)

func TestTransition(t *testing.T) {
    cases := []struct {
        from, to string
        ok       bool
    }{
        {StatusPending, StatusConverting, true},
        {StatusPending, StatusCancelled, true},
        {StatusPending, StatusCompleted, false},
        {StatusConverting, StatusConverting, true},
        {StatusConverting, StatusCompleted, true},
        {StatusConverting, StatusFailed, true},
        {StatusCompleted, StatusConverting, false},
        {StatusCancelled, StatusFailed, false},
        {StatusFailed, StatusCancelled, false},
    }
    now := time.Now()
    for _, tc := range cases {
        j := store.Job{Status: tc.from}
        err := transition(&j, tc.to, now)
        if (err == nil) != tc.ok {
            t.Errorf("%s -> %s: err = %v", tc.from, tc.to, err)
            continue
        }
        var te *ErrTransition
        if !tc.ok && (!errors.As(err, &te) || j.Status != tc.from) {
            t.Errorf("%s -> %s: rejected transition changed job or has wrong error %v", tc.from, tc.to, err)
        }
    }

    j := store.Job{Status: StatusPending}
    _ = transition(&j, StatusConverting, now)
    if j.Start == nil || j.End != nil {
        t.Errorf("start/end after converting: %+v", j)
    }
    _ = transition(&j, StatusCompleted, now)
    if j.End == nil || !IsTerminal(j.Status) {
        t.Errorf("completed job: %+v", j)
    }
}

func TestProgress(t *testing.T) {
    for _, tc := range []struct{ done, total, want int }{
        {0, 0, 0}, {0, 4, 5}, {2, 4, 50}, {4, 4, 95},
    } {
        if got := progress(tc.done, tc.total); got != tc.want {
            t.Errorf("progress(%d, %d) = %d, want %d", tc.done, tc.total, got, tc.want)
        }
    }
}

func TestCleanupTemps(t *testing.T) {
    dir := t.TempDir()
    old := filepath.Join(dir, tempPrefix+"old-1")
    fresh := filepath.Join(dir, tempPrefix+"new-1")
    other := filepath.Join(dir, "unrelated")
    for _, d := range []string{old, fresh, other} {
        if err := os.MkdirAll(d, 0o755); err != nil { t.Fatal(err) }
    }
    past := time.Now().Add(-2 * time.Hour)
    _ = os.Chtimes(old, past, past)
    _ = os.Chtimes(other, past, past)

    if n := CleanupTemps(dir, time.Hour); n != 1 {
        t.Fatalf("removed %d, want 1", n)
    }
    if _, err := os.Stat(old); !os.IsNotExist(err) {
        t.Error("stale scratch dir kept")
    }
    for _, d := range []string{fresh, other} {
        if _, err := os.Stat(d); err != nil {
            t.Errorf("%s removed: %v", d, err)
        }
    }
}
