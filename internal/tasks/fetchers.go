package tasks

import (
	"context"
	"time"

	"dzfresh/internal/deezer"
)

// walkPages drives a paginated endpoint until the envelope reports no
// next page, visit stops the walk, or the executor absorbs a failure.
// Only fatal errors are returned; an absorbed page fetch ends the walk
// with whatever the caller accumulated so far.
func walkPages[T any](ctx context.Context, ex *deezer.Executor, op string, fetch func(ctx context.Context, next string) (*deezer.Page[T], error), visit func(item T) bool) error {
	next := ""
	for {
		page, ok, err := deezer.Do(ctx, ex, op, func(c context.Context) (*deezer.Page[T], error) {
			return fetch(c, next)
		})
		if err != nil {
			return err
		}
		if !ok || page == nil {
			return nil
		}
		for _, item := range page.Items {
			if !visit(item) {
				return nil
			}
		}
		if page.Next == "" {
			return nil
		}
		next = page.Next
	}
}

// fetchNewReleases walks the user's followed artists and collects track
// ids from albums released today or yesterday, keeping tracks whose own
// release date falls within the lookback window. Returns the collected
// ids and the number of artists scanned.
func (e *RefreshEngine) fetchNewReleases(ctx context.Context, userID int64, days int, progress chan<- ProgressUpdate) ([]int64, int, error) {
	var artists []deezer.Artist
	err := walkPages(ctx, e.ex, "user.artists", func(c context.Context, next string) (*deezer.Page[deezer.Artist], error) {
		return e.svc.FollowedArtists(c, userID, next)
	}, func(a deezer.Artist) bool {
		artists = append(artists, a)
		return true
	})
	if err != nil {
		return nil, 0, err
	}

	today := dateOnly(e.now())
	yesterday := today.AddDate(0, 0, -1)
	oldest := today.AddDate(0, 0, -days)

	total := len(artists)
	e.logger.Info("scanning followed artists for new releases", "artists", total)
	e.send(progress, scanArtistsUpdate(0, total, nil))

	var fresh []int64
	for i, artist := range artists {
		var recent []deezer.Album
		err := walkPages(ctx, e.ex, "artist.albums", func(c context.Context, next string) (*deezer.Page[deezer.Album], error) {
			return e.svc.ArtistAlbums(c, artist.ID, next)
		}, func(album deezer.Album) bool {
			released, ok := parseReleaseDate(album.ReleaseDate)
			if ok && (released.Equal(today) || released.Equal(yesterday)) {
				recent = append(recent, album)
			}
			return true
		})
		if err != nil {
			return nil, 0, err
		}

		for _, album := range recent {
			err := walkPages(ctx, e.ex, "album.tracks", func(c context.Context, next string) (*deezer.Page[deezer.Track], error) {
				return e.svc.AlbumTracks(c, album.ID, next)
			}, func(track deezer.Track) bool {
				released, ok := parseReleaseDate(track.ReleaseDate)
				if ok && !released.Before(oldest) && !released.After(today) {
					fresh = append(fresh, track.ID)
				}
				return true
			})
			if err != nil {
				return nil, 0, err
			}
		}

		e.send(progress, scanArtistsUpdate(i+1, total, &artist))
	}

	e.logger.Info("collected fresh tracks", "count", len(fresh))
	return fresh, total, nil
}

// fetchListened collects track ids from the listening history no older
// than the lookback window. History entries arrive newest first, so the
// walk stops at the first stale entry without requesting further pages.
func (e *RefreshEngine) fetchListened(ctx context.Context, userID int64, days int) ([]int64, error) {
	cutoff := e.now().Add(-time.Duration(days) * 24 * time.Hour)

	var listened []int64
	err := walkPages(ctx, e.ex, "user.history", func(c context.Context, next string) (*deezer.Page[deezer.HistoryEntry], error) {
		return e.svc.History(c, userID, next)
	}, func(entry deezer.HistoryEntry) bool {
		if time.Unix(entry.Timestamp, 0).Before(cutoff) {
			return false
		}
		listened = append(listened, entry.ID)
		return true
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("collected recently played tracks", "count", len(listened))
	return listened, nil
}

// fetchPlaylistTracks collects the full current contents of a playlist.
func (e *RefreshEngine) fetchPlaylistTracks(ctx context.Context, playlistID string) ([]int64, error) {
	var members []int64
	err := walkPages(ctx, e.ex, "playlist.tracks", func(c context.Context, next string) (*deezer.Page[deezer.Track], error) {
		return e.svc.PlaylistTracks(c, playlistID, next)
	}, func(track deezer.Track) bool {
		members = append(members, track.ID)
		return true
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("collected playlist contents", "count", len(members))
	return members, nil
}

// dateOnly truncates a moment to its civil date, normalized to UTC so
// it compares cleanly against parsed release dates.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// parseReleaseDate parses the YYYY-MM-DD release date Deezer attaches
// to albums and tracks. Placeholder dates like 0000-00-00 fail to parse
// and are reported as absent.
func parseReleaseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
