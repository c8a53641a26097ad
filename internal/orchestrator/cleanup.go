package orchestrator

import (
    "os"
    "path/filepath"
    "strings"
    "time"
)

// tempPrefix names the per-job scratch directories created by the runner.
const tempPrefix = "pdftables-"

// CleanupTemps removes scratch directories under dir (os.TempDir when empty)
// older than maxAge. They are normally removed when a job ends; this catches
// those left behind by a crash. It returns how many were removed.
func CleanupTemps(dir string, maxAge time.Duration) int {
    if dir == "" { dir = os.TempDir() }
    entries, err := os.ReadDir(dir)
    if err != nil { return 0 }
    now := time.Now()
    removed := 0
    for _, e := range entries {
        if !e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) { continue }
        info, err := e.Info()
        if err != nil { continue }
        if now.Sub(info.ModTime()) >= maxAge {
            if os.RemoveAll(filepath.Join(dir, e.Name())) == nil { removed++ }
        }
    }
    return removed
}
