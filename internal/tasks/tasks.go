package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"dzfresh/internal/deezer"
	"dzfresh/internal/shared"
)

// mutationChunkSize caps the number of track ids sent per mutation
// call. Larger batches make the query string unwieldy and raise the
// odds of a partial rejection.
const mutationChunkSize = 100

const defaultLookbackDays = 2

// Service describes the Deezer operations a refresh run consumes.
// [deezer.Client] satisfies it; tests substitute scripted fakes.
type Service interface {
	Me(ctx context.Context) (*deezer.User, error)
	FollowedArtists(ctx context.Context, userID int64, next string) (*deezer.Page[deezer.Artist], error)
	ArtistAlbums(ctx context.Context, artistID int64, next string) (*deezer.Page[deezer.Album], error)
	AlbumTracks(ctx context.Context, albumID int64, next string) (*deezer.Page[deezer.Track], error)
	History(ctx context.Context, userID int64, next string) (*deezer.Page[deezer.HistoryEntry], error)
	PlaylistTracks(ctx context.Context, playlistID string, next string) (*deezer.Page[deezer.Track], error)
	Playlist(ctx context.Context, playlistID string) (*deezer.Playlist, error)
	SearchPlaylists(ctx context.Context, query, next string) (*deezer.Page[deezer.Playlist], error)
	CreatePlaylist(ctx context.Context, userID int64, title string) (string, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []int64) (bool, error)
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []int64) (bool, error)
}

// RefreshEngine reconciles a profile's playlist against the profile's
// Deezer account. All service calls funnel through the executor so one
// run shares a single rate-limit window with any sibling runs.
type RefreshEngine struct {
	svc    Service
	ex     *deezer.Executor
	logger *log.Logger
	now    func() time.Time
}

// NewRefreshEngine creates an engine for one profile's service handle.
// The executor may be shared across engines.
func NewRefreshEngine(svc Service, ex *deezer.Executor, logger *log.Logger) *RefreshEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &RefreshEngine{
		svc:    svc,
		ex:     ex,
		logger: logger,
		now:    time.Now,
	}
}

// RunParams configures a single refresh run.
type RunParams struct {
	Profile      string             // Folded profile name, for logs and the result
	PlaylistName string             // Display title of the managed playlist
	PlaylistID   string             // Previously resolved playlist id, may be empty
	LookbackDays int                // Release and history window, defaults to 2
	PersistID    func(string) error // Invoked when resolution lands on a new id
}

// RunResult summarizes a completed refresh run.
type RunResult struct {
	RunID        string
	Profile      string
	PlaylistID   string
	PlaylistName string
	Artists      int
	Fresh        int
	Listened     int
	PlaylistSize int
	Added        int
	Removed      int
	StartedAt    time.Time
	Duration     time.Duration
}

// Run executes the full reconciliation for one profile. Progress
// updates are sent to prog (may be nil) without blocking. The returned
// error is always fatal: an aborted fetch, a failed resolution, or a
// canceled context.
func (e *RefreshEngine) Run(ctx context.Context, user *deezer.User, params RunParams, prog chan<- ProgressUpdate) (*RunResult, error) {
	if e.svc == nil || e.ex == nil {
		return nil, fmt.Errorf("%w: engine not initialized", shared.ErrServiceUnavailable)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: run requires a resolved user", shared.ErrIdentityFetch)
	}

	days := params.LookbackDays
	if days <= 0 {
		days = defaultLookbackDays
	}

	started := e.now()
	result := &RunResult{
		RunID:        shared.GenerateID(),
		Profile:      params.Profile,
		PlaylistName: params.PlaylistName,
		StartedAt:    started,
	}
	logger := e.logger.With("run_id", result.RunID, "profile", params.Profile)

	e.send(prog, resolvePlaylistUpdate(params.PlaylistName))
	playlistID, changed, err := e.ensurePlaylist(ctx, user, params.PlaylistName, params.PlaylistID)
	if err != nil {
		return nil, err
	}
	result.PlaylistID = playlistID
	if changed && params.PersistID != nil {
		if err := params.PersistID(playlistID); err != nil {
			logger.Warn("failed to persist playlist id", "playlist_id", playlistID, "error", err)
		}
	}
	e.send(prog, playlistReadyUpdate(playlistID))

	fresh, artists, err := e.fetchNewReleases(ctx, user.ID, days, prog)
	if err != nil {
		return nil, err
	}
	result.Artists = artists
	result.Fresh = len(fresh)

	e.send(prog, fetchHistoryUpdate(days))
	listened, err := e.fetchListened(ctx, user.ID, days)
	if err != nil {
		return nil, err
	}
	result.Listened = len(listened)

	e.send(prog, fetchPlaylistUpdate())
	members, err := e.fetchPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	result.PlaylistSize = len(members)

	toAdd, toRemove := diff(fresh, members, listened)

	if len(toAdd) > 0 {
		e.send(prog, applyAddsUpdate(len(toAdd)))
		if err := e.addTracks(ctx, playlistID, toAdd); err != nil {
			return nil, err
		}
		result.Added = len(toAdd)
		logger.Info("added new tracks to the playlist", "count", len(toAdd))
	} else {
		logger.Info("no new tracks to add to the playlist")
	}

	if len(toRemove) > 0 {
		e.send(prog, applyRemovalsUpdate(len(toRemove)))
		if err := e.removeTracks(ctx, playlistID, toRemove); err != nil {
			return nil, err
		}
		result.Removed = len(toRemove)
		logger.Info("removed listened tracks from the playlist", "count", len(toRemove))
	} else {
		logger.Info("no tracks to remove from the playlist")
	}

	result.Duration = e.now().Sub(started)
	return result, nil
}

// ensurePlaylist resolves the managed playlist id. A stored id that
// still resolves wins; otherwise the engine searches for a playlist
// titled name and owned by the user, and creates one as a last resort.
// The second return reports whether the id differs from the stored one.
func (e *RefreshEngine) ensurePlaylist(ctx context.Context, user *deezer.User, name, knownID string) (string, bool, error) {
	if knownID != "" {
		playlist, ok, err := deezer.Do(ctx, e.ex, "playlist.get", func(c context.Context) (*deezer.Playlist, error) {
			return e.svc.Playlist(c, knownID)
		})
		if err != nil {
			return "", false, err
		}
		if ok && playlist != nil {
			return knownID, false, nil
		}
		e.logger.Info("stored playlist id no longer resolves", "playlist_id", knownID)
	}

	query := fmt.Sprintf("%s %s", name, user.Name)
	var found string
	err := walkPages(ctx, e.ex, "search.playlists", func(c context.Context, next string) (*deezer.Page[deezer.Playlist], error) {
		return e.svc.SearchPlaylists(c, query, next)
	}, func(playlist deezer.Playlist) bool {
		if strings.EqualFold(playlist.Title, name) && playlist.Owner() == user.ID {
			found = strconv.FormatInt(playlist.ID, 10)
			return false
		}
		return true
	})
	if err != nil {
		return "", false, err
	}
	if found != "" {
		e.logger.Info("resolved playlist by search", "playlist_id", found)
		return found, true, nil
	}

	e.logger.Info("playlist not found, creating it", "name", name)
	created, ok, err := deezer.Do(ctx, e.ex, "playlist.create", func(c context.Context) (string, error) {
		return e.svc.CreatePlaylist(c, user.ID, name)
	})
	if err != nil {
		return "", false, err
	}
	if !ok || created == "" {
		return "", false, fmt.Errorf("%w: create returned no playlist id", shared.ErrPlaylistResolve)
	}
	return created, true, nil
}

func (e *RefreshEngine) addTracks(ctx context.Context, playlistID string, ids []int64) error {
	for _, chunk := range chunkIDs(ids, mutationChunkSize) {
		_, ok, err := deezer.Do(ctx, e.ex, "playlist.add", func(c context.Context) (bool, error) {
			return e.svc.AddTracks(c, playlistID, chunk)
		})
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Debug("add call absorbed", "tracks", len(chunk))
		}
	}
	return nil
}

func (e *RefreshEngine) removeTracks(ctx context.Context, playlistID string, ids []int64) error {
	for _, chunk := range chunkIDs(ids, mutationChunkSize) {
		_, ok, err := deezer.Do(ctx, e.ex, "playlist.remove", func(c context.Context) (bool, error) {
			return e.svc.RemoveTracks(c, playlistID, chunk)
		})
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Debug("remove call absorbed", "tracks", len(chunk))
		}
	}
	return nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}

// send delivers a progress update without blocking the run.
func (e *RefreshEngine) send(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
