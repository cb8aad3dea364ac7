package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"dzfresh/internal/deezer"
	"dzfresh/internal/shared"
)

var testNow = time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

const (
	dateToday     = "2026-08-26"
	dateYesterday = "2026-08-25"
	dateStale     = "2026-05-01"
)

// fakeService scripts the Deezer surface the engine consumes. List
// endpoints are served in pages of pageSize items (everything on one
// page when zero) with opaque offset tokens standing in for the
// service's next URLs.
type fakeService struct {
	user     *deezer.User
	pageSize int

	artists         []deezer.Artist
	artistPageCalls int

	albums    map[int64][]deezer.Album
	tracks    map[int64][]deezer.Track
	trackErrs map[int64]error

	history      []deezer.HistoryEntry
	historyCalls int

	playlists   map[string]*deezer.Playlist
	lookupErrs  map[string]error
	lookupCalls map[string]int

	members map[string][]deezer.Track

	searches      map[string][]deezer.Playlist
	searchQueries []string

	createdID string
	createErr error

	added   map[string][][]int64
	removed map[string][][]int64
}

func newFakeService() *fakeService {
	return &fakeService{
		user:        &deezer.User{ID: 42, Name: "alice"},
		albums:      map[int64][]deezer.Album{},
		tracks:      map[int64][]deezer.Track{},
		trackErrs:   map[int64]error{},
		playlists:   map[string]*deezer.Playlist{},
		lookupErrs:  map[string]error{},
		lookupCalls: map[string]int{},
		members:     map[string][]deezer.Track{},
		searches:    map[string][]deezer.Playlist{},
		added:       map[string][][]int64{},
		removed:     map[string][][]int64{},
	}
}

func paginate[T any](items []T, size int, next string) *deezer.Page[T] {
	if size <= 0 {
		size = len(items) + 1
	}

	offset := 0
	if next != "" {
		offset, _ = strconv.Atoi(strings.TrimPrefix(next, "offset="))
	}
	end := offset + size
	if end > len(items) {
		end = len(items)
	}

	page := &deezer.Page[T]{Items: items[offset:end], Total: len(items)}
	if end < len(items) {
		page.Next = fmt.Sprintf("offset=%d", end)
	}
	return page
}

func (f *fakeService) Me(context.Context) (*deezer.User, error) {
	return f.user, nil
}

func (f *fakeService) FollowedArtists(_ context.Context, _ int64, next string) (*deezer.Page[deezer.Artist], error) {
	f.artistPageCalls++
	return paginate(f.artists, f.pageSize, next), nil
}

func (f *fakeService) ArtistAlbums(_ context.Context, artistID int64, next string) (*deezer.Page[deezer.Album], error) {
	return paginate(f.albums[artistID], f.pageSize, next), nil
}

func (f *fakeService) AlbumTracks(_ context.Context, albumID int64, next string) (*deezer.Page[deezer.Track], error) {
	if err := f.trackErrs[albumID]; err != nil {
		return nil, err
	}
	return paginate(f.tracks[albumID], f.pageSize, next), nil
}

func (f *fakeService) History(_ context.Context, _ int64, next string) (*deezer.Page[deezer.HistoryEntry], error) {
	f.historyCalls++
	return paginate(f.history, f.pageSize, next), nil
}

func (f *fakeService) PlaylistTracks(_ context.Context, playlistID string, next string) (*deezer.Page[deezer.Track], error) {
	return paginate(f.members[playlistID], f.pageSize, next), nil
}

func (f *fakeService) Playlist(_ context.Context, playlistID string) (*deezer.Playlist, error) {
	f.lookupCalls[playlistID]++
	if err := f.lookupErrs[playlistID]; err != nil {
		return nil, err
	}
	if playlist, ok := f.playlists[playlistID]; ok {
		return playlist, nil
	}
	return nil, &deezer.Error{Type: "DataException", Message: "no data", Code: deezer.CodeDataNotFound}
}

func (f *fakeService) SearchPlaylists(_ context.Context, query, next string) (*deezer.Page[deezer.Playlist], error) {
	if next == "" {
		f.searchQueries = append(f.searchQueries, query)
	}
	return paginate(f.searches[query], f.pageSize, next), nil
}

func (f *fakeService) CreatePlaylist(context.Context, int64, string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createdID, nil
}

func (f *fakeService) AddTracks(_ context.Context, playlistID string, ids []int64) (bool, error) {
	f.added[playlistID] = append(f.added[playlistID], slices.Clone(ids))
	for _, id := range ids {
		f.members[playlistID] = append(f.members[playlistID], deezer.Track{ID: id})
	}
	return true, nil
}

func (f *fakeService) RemoveTracks(_ context.Context, playlistID string, ids []int64) (bool, error) {
	f.removed[playlistID] = append(f.removed[playlistID], slices.Clone(ids))
	f.members[playlistID] = slices.DeleteFunc(f.members[playlistID], func(track deezer.Track) bool {
		return slices.Contains(ids, track.ID)
	})
	return true, nil
}

func testEngine(svc Service) *RefreshEngine {
	logger := shared.NewLogger(io.Discard)
	ex := deezer.NewExecutor(nil, logger, 1, time.Millisecond)
	engine := NewRefreshEngine(svc, ex, logger)
	engine.now = func() time.Time { return testNow }
	return engine
}

func runParams(playlistID string, persisted *[]string) RunParams {
	return RunParams{
		Profile:      "ALICE",
		PlaylistName: "Deezer News 🎶",
		PlaylistID:   playlistID,
		LookbackDays: 2,
		PersistID: func(id string) error {
			if persisted != nil {
				*persisted = append(*persisted, id)
			}
			return nil
		},
	}
}

func TestRefreshEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("adds fresh tracks and removes heard ones", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Artist One"}}
		svc.albums[1] = []deezer.Album{
			{ID: 100, Title: "Fresh Album", ReleaseDate: dateToday},
			{ID: 101, Title: "Back Catalog", ReleaseDate: dateStale},
		}
		svc.tracks[100] = []deezer.Track{
			{ID: 1000, Title: "Fresh Song", ReleaseDate: dateToday},
			{ID: 1001, Title: "Fresh Too", ReleaseDate: dateYesterday},
			{ID: 1002, Title: "Bundled Reissue", ReleaseDate: "2020-01-01"},
		}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}
		svc.members["pl-1"] = []deezer.Track{{ID: 1001}, {ID: 2000}}
		svc.history = []deezer.HistoryEntry{
			{ID: 2000, Timestamp: testNow.Add(-time.Hour).Unix()},
		}

		var persisted []string
		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("pl-1", &persisted), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		// 1001 is already in the playlist and 1002 is outside the window,
		// so only 1000 qualifies; 2000 was played and must go.
		if got := svc.added["pl-1"]; len(got) != 1 || !slices.Equal(got[0], []int64{1000}) {
			t.Errorf("added calls = %v, want [[1000]]", got)
		}
		if got := svc.removed["pl-1"]; len(got) != 1 || !slices.Equal(got[0], []int64{2000}) {
			t.Errorf("removed calls = %v, want [[2000]]", got)
		}

		if result.PlaylistID != "pl-1" {
			t.Errorf("PlaylistID = %q, want pl-1", result.PlaylistID)
		}
		if result.Artists != 1 || result.Fresh != 2 || result.Listened != 1 || result.PlaylistSize != 2 {
			t.Errorf("counts = %+v, want 1 artist, 2 fresh, 1 listened, 2 members", result)
		}
		if result.Added != 1 || result.Removed != 1 {
			t.Errorf("Added/Removed = %d/%d, want 1/1", result.Added, result.Removed)
		}
		if result.RunID == "" {
			t.Error("expected a run id")
		}

		// The stored id still resolves, so no re-resolution happened.
		if len(persisted) != 0 {
			t.Errorf("persist calls = %v, want none for a valid stored id", persisted)
		}
		if len(svc.searchQueries) != 0 {
			t.Errorf("search queries = %v, want none", svc.searchQueries)
		}
	})

	t.Run("deleted playlist id falls back to search", func(t *testing.T) {
		svc := newFakeService()
		svc.lookupErrs["pl-dead"] = &deezer.Error{Type: "DataException", Message: "no data", Code: deezer.CodeDataNotFound}
		svc.searches["Deezer News 🎶 alice"] = []deezer.Playlist{
			{ID: 444, Title: "Deezer News 🎶", User: &deezer.User{ID: 99}},
			{ID: 555, Title: "deezer news 🎶", User: &deezer.User{ID: 42}},
		}

		var persisted []string
		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("pl-dead", &persisted), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		// Someone else's identically-named playlist is skipped; the title
		// match is case-insensitive.
		if result.PlaylistID != "555" {
			t.Errorf("PlaylistID = %q, want 555", result.PlaylistID)
		}
		if !slices.Equal(persisted, []string{"555"}) {
			t.Errorf("persisted = %v, want [555]", persisted)
		}
		if svc.lookupCalls["pl-dead"] != 1 {
			t.Errorf("lookup calls = %d, want 1", svc.lookupCalls["pl-dead"])
		}
	})

	t.Run("no search match creates the playlist", func(t *testing.T) {
		svc := newFakeService()
		svc.searches["Deezer News 🎶 alice"] = []deezer.Playlist{
			{ID: 444, Title: "Unrelated Mix", User: &deezer.User{ID: 42}},
		}
		svc.createdID = "777"

		var persisted []string
		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("", &persisted), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if result.PlaylistID != "777" {
			t.Errorf("PlaylistID = %q, want 777", result.PlaylistID)
		}
		if !slices.Equal(persisted, []string{"777"}) {
			t.Errorf("persisted = %v, want [777]", persisted)
		}
	})

	t.Run("failed creation is fatal", func(t *testing.T) {
		svc := newFakeService()
		svc.createErr = &deezer.Error{Type: "OAuthException", Message: "insufficient permissions", Code: 200}

		engine := testEngine(svc)
		_, err := engine.Run(ctx, svc.user, runParams("", nil), nil)
		if !errors.Is(err, shared.ErrPlaylistResolve) {
			t.Errorf("expected ErrPlaylistResolve, got %v", err)
		}
	})

	t.Run("persist failure does not abort the run", func(t *testing.T) {
		svc := newFakeService()
		svc.createdID = "888"

		params := runParams("", nil)
		params.PersistID = func(string) error { return errors.New("disk full") }

		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, params, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.PlaylistID != "888" {
			t.Errorf("PlaylistID = %q, want 888", result.PlaylistID)
		}
	})

	t.Run("absorbed track fetch keeps the run going", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Artist One"}}
		svc.albums[1] = []deezer.Album{
			{ID: 100, Title: "Gone Album", ReleaseDate: dateToday},
			{ID: 101, Title: "Fresh Album", ReleaseDate: dateToday},
		}
		svc.trackErrs[100] = &deezer.HTTPError{StatusCode: 404}
		svc.tracks[101] = []deezer.Track{{ID: 1100, Title: "Survivor", ReleaseDate: dateToday}}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if err != nil {
			t.Fatalf("a not-found album must not abort the run, got %v", err)
		}

		if result.Fresh != 1 || result.Added != 1 {
			t.Errorf("Fresh/Added = %d/%d, want 1/1", result.Fresh, result.Added)
		}
		if got := svc.added["pl-1"]; len(got) != 1 || !slices.Equal(got[0], []int64{1100}) {
			t.Errorf("added calls = %v, want [[1100]]", got)
		}
	})

	t.Run("fatal fetch error aborts the run", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Artist One"}}
		svc.albums[1] = []deezer.Album{{ID: 100, Title: "Fresh Album", ReleaseDate: dateToday}}
		boom := errors.New("connection reset")
		svc.trackErrs[100] = boom
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		engine := testEngine(svc)
		_, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if !errors.Is(err, boom) {
			t.Errorf("expected the transport error to propagate, got %v", err)
		}
		if len(svc.added["pl-1"])+len(svc.removed["pl-1"]) != 0 {
			t.Error("no mutations may run after a fatal fetch")
		}
	})

	t.Run("paginated artists are each scanned once", func(t *testing.T) {
		svc := newFakeService()
		svc.pageSize = 2
		for i := int64(1); i <= 5; i++ {
			svc.artists = append(svc.artists, deezer.Artist{ID: i, Name: fmt.Sprintf("Artist %d", i)})
			svc.albums[i] = []deezer.Album{{ID: 100 + i, Title: "Fresh", ReleaseDate: dateToday}}
			svc.tracks[100+i] = []deezer.Track{{ID: 1000 + i, Title: "Song", ReleaseDate: dateToday}}
		}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if svc.artistPageCalls != 3 {
			t.Errorf("artist page calls = %d, want 3 (pages of 2, 2, 1)", svc.artistPageCalls)
		}
		if result.Artists != 5 || result.Fresh != 5 {
			t.Errorf("Artists/Fresh = %d/%d, want 5/5", result.Artists, result.Fresh)
		}
		if got := svc.added["pl-1"]; len(got) != 1 || !slices.Equal(got[0], []int64{1001, 1002, 1003, 1004, 1005}) {
			t.Errorf("added calls = %v, want each page's track exactly once", got)
		}
	})

	t.Run("history stops at the first stale entry", func(t *testing.T) {
		svc := newFakeService()
		svc.pageSize = 2
		svc.history = []deezer.HistoryEntry{
			{ID: 1, Timestamp: testNow.Add(-time.Hour).Unix()},
			{ID: 2, Timestamp: testNow.Add(-72 * time.Hour).Unix()},
			{ID: 3, Timestamp: testNow.Add(-100 * time.Hour).Unix()},
			{ID: 4, Timestamp: testNow.Add(-200 * time.Hour).Unix()},
		}
		svc.members["pl-1"] = []deezer.Track{{ID: 1}, {ID: 2}}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if svc.historyCalls != 1 {
			t.Errorf("history page calls = %d, want 1 (early exit)", svc.historyCalls)
		}
		if result.Listened != 1 {
			t.Errorf("Listened = %d, want 1", result.Listened)
		}
		// Track 2 was played outside the window, so it stays.
		if got := svc.removed["pl-1"]; len(got) != 1 || !slices.Equal(got[0], []int64{1}) {
			t.Errorf("removed calls = %v, want [[1]]", got)
		}
	})

	t.Run("mutations are chunked", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Prolific"}}
		svc.albums[1] = []deezer.Album{{ID: 100, Title: "Megabox", ReleaseDate: dateToday}}
		for i := int64(1); i <= 150; i++ {
			svc.tracks[100] = append(svc.tracks[100], deezer.Track{ID: i, Title: "Song", ReleaseDate: dateToday})
		}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		engine := testEngine(svc)
		if _, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		calls := svc.added["pl-1"]
		if len(calls) != 2 || len(calls[0]) != 100 || len(calls[1]) != 50 {
			sizes := make([]int, len(calls))
			for i, c := range calls {
				sizes[i] = len(c)
			}
			t.Fatalf("add call sizes = %v, want [100 50]", sizes)
		}
		if calls[0][0] != 1 || calls[1][49] != 150 {
			t.Errorf("expected sorted chunk boundaries, got %d..%d", calls[0][0], calls[1][49])
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Artist One"}}
		svc.albums[1] = []deezer.Album{{ID: 100, Title: "Fresh Album", ReleaseDate: dateToday}}
		svc.tracks[100] = []deezer.Track{
			{ID: 1000, Title: "Fresh Song", ReleaseDate: dateToday},
			{ID: 1001, Title: "Fresh Too", ReleaseDate: dateYesterday},
		}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}
		svc.members["pl-1"] = []deezer.Track{{ID: 2000}}
		svc.history = []deezer.HistoryEntry{
			{ID: 2000, Timestamp: testNow.Add(-time.Hour).Unix()},
		}

		engine := testEngine(svc)

		first, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		if first.Added != 2 || first.Removed != 1 {
			t.Fatalf("first run Added/Removed = %d/%d, want 2/1", first.Added, first.Removed)
		}

		second, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if second.Added != 0 || second.Removed != 0 {
			t.Errorf("second run Added/Removed = %d/%d, want 0/0", second.Added, second.Removed)
		}
		if len(svc.added["pl-1"]) != 1 || len(svc.removed["pl-1"]) != 1 {
			t.Errorf("second run issued mutation calls: added=%v removed=%v", svc.added["pl-1"], svc.removed["pl-1"])
		}
	})

	t.Run("empty diffs skip mutation calls", func(t *testing.T) {
		svc := newFakeService()
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		engine := testEngine(svc)
		result, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if result.Added != 0 || result.Removed != 0 {
			t.Errorf("Added/Removed = %d/%d, want 0/0", result.Added, result.Removed)
		}
		if len(svc.added)+len(svc.removed) != 0 {
			t.Error("no mutation calls may be issued for empty sets")
		}
	})

	t.Run("uninitialized engine is rejected", func(t *testing.T) {
		engine := NewRefreshEngine(nil, nil, shared.NewLogger(io.Discard))
		_, err := engine.Run(ctx, &deezer.User{ID: 1}, runParams("", nil), nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("missing user is rejected", func(t *testing.T) {
		engine := testEngine(newFakeService())
		_, err := engine.Run(ctx, nil, runParams("", nil), nil)
		if !errors.Is(err, shared.ErrIdentityFetch) {
			t.Errorf("expected ErrIdentityFetch, got %v", err)
		}
	})

	t.Run("progress sends never block", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Artist One"}}
		svc.albums[1] = []deezer.Album{{ID: 100, Title: "Fresh Album", ReleaseDate: dateToday}}
		svc.tracks[100] = []deezer.Track{{ID: 1000, Title: "Fresh Song", ReleaseDate: dateToday}}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		// Unbuffered channel without a consumer: every send must fall
		// through to the default case.
		prog := make(chan ProgressUpdate)

		engine := testEngine(svc)
		done := make(chan error, 1)
		go func() {
			_, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), prog)
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run() blocked on progress sends")
		}
	})

	t.Run("progress phases arrive in order", func(t *testing.T) {
		svc := newFakeService()
		svc.artists = []deezer.Artist{{ID: 1, Name: "Artist One"}}
		svc.albums[1] = []deezer.Album{{ID: 100, Title: "Fresh Album", ReleaseDate: dateToday}}
		svc.tracks[100] = []deezer.Track{{ID: 1000, Title: "Fresh Song", ReleaseDate: dateToday}}
		svc.playlists["pl-1"] = &deezer.Playlist{ID: 1, Title: "Deezer News 🎶", Creator: &deezer.User{ID: 42}}

		prog := make(chan ProgressUpdate, 100)
		engine := testEngine(svc)
		if _, err := engine.Run(ctx, svc.user, runParams("pl-1", nil), prog); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		close(prog)

		var phases []Phase
		for update := range prog {
			if len(phases) == 0 || phases[len(phases)-1] != update.Phase {
				phases = append(phases, update.Phase)
			}
		}

		want := []Phase{ResolvePlaylist, ScanArtists, FetchHistory, FetchPlaylist, ApplyAdds}
		if !slices.Equal(phases, want) {
			t.Errorf("phases = %v, want %v", phases, want)
		}
	})
}
