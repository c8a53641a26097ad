package orchestrator

import (
    "context"
    "time"

    "github.com/rs/zerolog/log"
)

// watchCancel derives a context that is cancelled as soon as the job is
// flagged in the queue's cancellation set. The returned func releases it.
func (r *Runner) watchCancel(parent context.Context, jobID string) (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(parent)
    go func() {
        ticker := time.NewTicker(r.cfg.CancelPoll)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                return
            case <-ticker.C:
                cancelled, err := r.deps.Queue.IsCancelled(ctx, jobID)
                if err != nil {
                    log.Debug().Err(err).Str("job_id", jobID).Msg("cancel check failed")
                    continue
                }
                if cancelled {
                    log.Info().Str("job_id", jobID).Msg("job cancelled (detected via Redis) - aborting conversion")
                    cancel()
                    return
                }
            }
        }
    }()
    return ctx, cancel
}
