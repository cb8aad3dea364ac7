package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"dzfresh/internal/shared"
	"dzfresh/internal/store"
)

// History prints recent reconciliation runs from the ledger, newest
// first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)

	profile := cmd.String("profile")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")

	history, err := store.OpenHistory(config.Store.DatabasePath, config.Store.MaxOpenConns, config.Store.MaxIdleConns)
	if err != nil {
		return err
	}
	defer history.Close()

	folded := ""
	if profile != "" {
		folded = shared.FoldName(profile)
	}

	records, err := history.Recent(ctx, folded, limit)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(records, true)
	}

	if len(records) == 0 {
		r.writePlain("No runs recorded yet.\n")
		return nil
	}

	r.writePlainHeader("Run History")
	for i, rec := range records {
		r.writePlain("%d. %s  %s\n", i+1, rec.StartedAt.Format("2006-01-02 15:04"), rec.Profile)
		r.writePlain("   Playlist: %s (%d tracks)\n", rec.PlaylistID, rec.PlaylistSize)
		r.writePlain("   Artists: %d  Fresh: %d  Played: %d\n", rec.Artists, rec.Fresh, rec.Listened)
		r.writePlain("   Added: %d  Removed: %d  Took: %s\n\n", rec.Added, rec.Removed, rec.Duration().Round(time.Millisecond))
	}

	return nil
}
