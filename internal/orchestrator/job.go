package orchestrator

import (
    "fmt"
    "time"

    "github.com/local/pdftables/internal/store"
)

const (
    StatusPending    = "pending"
    StatusConverting = "converting"
    StatusCompleted  = "completed"
    StatusFailed     = "failed"
    StatusCancelled  = "cancelled"
)

// transitions lists the legal next states. Converting may be re-entered when
// a retried attempt starts.
var transitions = map[string][]string{
    StatusPending:    {StatusConverting, StatusFailed, StatusCancelled},
    StatusConverting: {StatusConverting, StatusCompleted, StatusFailed, StatusCancelled},
}

// ErrTransition is returned for a state change the job lifecycle forbids.
type ErrTransition struct {
    From, To string
}

func (e *ErrTransition) Error() string {
    return fmt.Sprintf("illegal job transition %s -> %s", e.From, e.To)
}

func canTransition(from, to string) bool {
    for _, s := range transitions[from] {
        if s == to { return true }
    }
    return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status string) bool {
    return len(transitions[status]) == 0
}

// transition moves j to status, stamping start and end times.
func transition(j *store.Job, to string, now time.Time) error {
    if !canTransition(j.Status, to) {
        return &ErrTransition{From: j.Status, To: to}
    }
    j.Status = to
    switch to {
    case StatusConverting:
        if j.Start == nil { j.Start = &now }
    case StatusCompleted, StatusFailed, StatusCancelled:
        j.End = &now
    }
    return nil
}

// progress maps finished files to a percentage, reserving the last step for
// finalisation.
func progress(done, total int) int {
    if total <= 0 { return 0 }
    p := 5 + done*90/total
    if p > 95 { p = 95 }
    return p
}
