package tasks

import (
	"fmt"

	"dzfresh/internal/deezer"
)

// ProgressUpdate represents a progress event during a refresh run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	ResolvePlaylist Phase = iota
	ScanArtists
	FetchHistory
	FetchPlaylist
	ApplyAdds
	ApplyRemovals
)

func (p Phase) String() string {
	switch p {
	case ResolvePlaylist:
		return "resolve_playlist"
	case ScanArtists:
		return "scan_artists"
	case FetchHistory:
		return "fetch_history"
	case FetchPlaylist:
		return "fetch_playlist"
	case ApplyAdds:
		return "apply_adds"
	case ApplyRemovals:
		return "apply_removals"
	default:
		return "unknown"
	}
}

func resolvePlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Message: fmt.Sprintf("Resolving playlist %q...", name),
	}
}

func playlistReadyUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Using playlist %s", id),
	}
}

func scanArtistsUpdate(step, total int, artist *deezer.Artist) ProgressUpdate {
	update := ProgressUpdate{
		Phase:   ScanArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Scanning %d followed artists for new releases...", total),
	}
	if artist != nil {
		update.Message = fmt.Sprintf("[%d/%d] %s", step, total, artist.Name)
	}
	return update
}

func fetchHistoryUpdate(days int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Message: fmt.Sprintf("Fetching tracks listened over the last %d days...", days),
	}
}

func fetchPlaylistUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Message: "Fetching current playlist contents...",
	}
}

func applyAddsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyAdds,
		Total:   count,
		Message: fmt.Sprintf("Adding %d new tracks to the playlist...", count),
	}
}

func applyRemovalsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyRemovals,
		Total:   count,
		Message: fmt.Sprintf("Removing %d listened tracks from the playlist...", count),
	}
}
