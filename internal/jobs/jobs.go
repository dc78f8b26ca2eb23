package jobs

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sakif/catchme/internal/config"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/service"
)

// Job names, also used as the "job" log field.
const (
	PruneSessionsJobName = "prune-sessions"
	RefreshTokensJobName = "refresh-tokens"
)

// runTimeout bounds one job run so a hung database or provider cannot hold
// SkipIfStillRunning forever.
const runTimeout = 5 * time.Minute

// SessionPruner deletes expired sessions.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// TokenRefresher refreshes tokens that expire within a window.
type TokenRefresher interface {
	RefreshExpiringTokens(ctx context.Context, within time.Duration) (service.RefreshReport, error)
}

// PruneSessionsJob removes session rows whose expires_at has passed.
type PruneSessionsJob struct {
	Sessions SessionPruner
	Log      *logger.Logger
}

func (j *PruneSessionsJob) Run() {
	ctx, cancel := context.WithTimeout(j.Log.WithContext(context.Background()), runTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.Sessions.PruneSessions(ctx)
	if err != nil {
		j.Log.Error().Err(err).Msg("pruning expired sessions failed")
		return
	}

	j.Log.Info().
		Int64("deleted", n).
		Dur("took", time.Since(start)).
		Msgf("pruned %s expired session(s)", humanize.Comma(n))
}

// RefreshTokensJob refreshes long-lived tokens before Instagram lets them
// expire.
type RefreshTokensJob struct {
	Tokens TokenRefresher
	Within time.Duration
	Log    *logger.Logger
}

func (j *RefreshTokensJob) Run() {
	ctx, cancel := context.WithTimeout(j.Log.WithContext(context.Background()), runTimeout)
	defer cancel()

	report, err := j.Tokens.RefreshExpiringTokens(ctx, j.Within)
	if err != nil {
		j.Log.Error().Err(err).Msg("refreshing instagram tokens failed")
		return
	}

	ev := j.Log.Info()
	if report.Failed > 0 {
		ev = j.Log.Warn()
	}
	ev.Int("candidates", report.Candidates).
		Int("refreshed", report.Refreshed).
		Int("failed", report.Failed).
		Dur("window", j.Within).
		Msg("instagram token refresh finished")
}

// Maintainer is the subset of the auth service the scheduled jobs need.
type Maintainer interface {
	SessionPruner
	TokenRefresher
}

// Register adds the prune and refresh jobs to s using the configured
// schedules.
func Register(s *Scheduler, m Maintainer, cfg config.Jobs, log *logger.Logger) error {
	prune := &PruneSessionsJob{
		Sessions: m,
		Log:      log.With("job", PruneSessionsJobName),
	}
	if err := s.Add(PruneSessionsJobName, cfg.PruneSchedule, prune); err != nil {
		return err
	}

	refresh := &RefreshTokensJob{
		Tokens: m,
		Within: cfg.RefreshWithin,
		Log:    log.With("job", RefreshTokensJobName),
	}
	return s.Add(RefreshTokensJobName, cfg.RefreshSchedule, refresh)
}
