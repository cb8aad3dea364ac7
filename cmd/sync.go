package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"dzfresh/internal/deezer"
	"dzfresh/internal/ratelimit"
	"dzfresh/internal/shared"
	"dzfresh/internal/store"
	"dzfresh/internal/tasks"
	"dzfresh/internal/ui"
)

// Sync reconciles the managed playlist for every enrolled profile, in
// enrollment order, sharing one rate-limit window across all of them.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)

	env := store.NewEnv(config.Store.EnvPath)
	names, err := env.Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: run 'dzfresh enroll' first", shared.ErrNoProfiles)
	}

	gate := ratelimit.New(config.Limits.MaxRequests, config.Limits.Period())
	executor := deezer.NewExecutor(gate, r.logger, config.Limits.RetryAttempts, config.Limits.RetryBackoff())

	// The ledger is bookkeeping; the playlist still gets reconciled
	// when it cannot be opened.
	history, err := store.OpenHistory(config.Store.DatabasePath, config.Store.MaxOpenConns, config.Store.MaxIdleConns)
	if err != nil {
		r.logger.Warn("run ledger unavailable", "path", config.Store.DatabasePath, "error", err)
		history = nil
	} else {
		defer history.Close()
	}

	r.logger.Info("starting sync", "profiles", len(names), "playlist", config.App.PlaylistName)

	for _, name := range names {
		result, err := r.syncProfile(ctx, config, env, executor, history, name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.writePlain("\n%s\n", ui.Warn("Interrupted, exiting."))
				return nil
			}
			return err
		}
		r.printRunSummary(result)
	}

	r.writePlain("%s\n", ui.Success("Finished!"))
	return nil
}

// syncProfile runs the full reconciliation for one enrolled name.
func (r *Runner) syncProfile(ctx context.Context, config *shared.Config, env *store.Env, executor *deezer.Executor, history *store.History, name string) (*tasks.RunResult, error) {
	token := env.Token(name)
	if token == "" {
		return nil, fmt.Errorf("%w for profile %s", shared.ErrMissingToken, name)
	}

	client := deezer.NewClient(token, "", r.httpClient)

	r.writePlain("%s\n", ui.Title(fmt.Sprintf("Refreshing %q for %s", config.App.PlaylistName, name)))

	user, ok, err := deezer.Do(ctx, executor, "user.me", func(c context.Context) (*deezer.User, error) {
		return client.Me(c)
	})
	if err != nil {
		return nil, err
	}
	if !ok || user == nil {
		return nil, fmt.Errorf("%w for profile %s", shared.ErrIdentityFetch, name)
	}
	r.logger.Info("resolved identity", "profile", name, "user_id", user.ID)

	engine := tasks.NewRefreshEngine(client, executor, r.logger)

	prog := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.renderProgress(prog)
	}()

	params := tasks.RunParams{
		Profile:      shared.FoldName(name),
		PlaylistName: config.App.PlaylistName,
		PlaylistID:   env.PlaylistID(name),
		LookbackDays: config.App.LookbackDays,
		PersistID: func(id string) error {
			return env.SetPlaylistID(name, id)
		},
	}

	result, err := engine.Run(ctx, user, params, prog)
	close(prog)
	<-done
	if err != nil {
		return nil, err
	}

	r.recordRun(ctx, history, result)
	return result, nil
}

// renderProgress drains engine updates, drawing the artist scan as a
// single repainted line and everything else as plain text.
func (r *Runner) renderProgress(updates <-chan tasks.ProgressUpdate) {
	bar := ui.NewBar(r.output)
	for update := range updates {
		if update.Phase == tasks.ScanArtists && update.Total > 0 {
			bar.Update(update.Step, update.Total, update.Message)
			continue
		}
		bar.Finish()
		r.writePlain("→ %s\n", update.Message)
	}
	bar.Finish()
}

// recordRun appends the run to the ledger. Failures degrade to a log
// line because the playlist was already updated.
func (r *Runner) recordRun(ctx context.Context, history *store.History, result *tasks.RunResult) {
	if history == nil {
		return
	}

	rec := store.RunRecord{
		ID:           result.RunID,
		Profile:      result.Profile,
		PlaylistID:   result.PlaylistID,
		Artists:      result.Artists,
		Fresh:        result.Fresh,
		Listened:     result.Listened,
		PlaylistSize: result.PlaylistSize,
		Added:        result.Added,
		Removed:      result.Removed,
		StartedAt:    result.StartedAt,
		DurationMS:   result.Duration.Milliseconds(),
	}
	if err := history.Record(ctx, rec); err != nil {
		r.logger.Warn("failed to record run", "run_id", result.RunID, "error", err)
	}
}

func (r *Runner) printRunSummary(result *tasks.RunResult) {
	r.writePlain("\n%s\n", ui.Success("✓ Refresh complete for "+result.Profile))
	r.writePlain("  Playlist: %s (%s)\n", result.PlaylistName, result.PlaylistID)
	r.writePlain("  Artists scanned: %d\n", result.Artists)
	r.writePlain("  Fresh tracks: %d\n", result.Fresh)
	r.writePlain("  Recently played: %d\n", result.Listened)
	r.writePlain("  Added: %d  Removed: %d\n", result.Added, result.Removed)
	r.writePlain("  Took: %s\n\n", result.Duration.Round(time.Millisecond))
}
