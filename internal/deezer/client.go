package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBaseURL = "https://api.deezer.com"

// Client performs authenticated calls against the Deezer API.
//
// Deezer authenticates with an access_token query parameter rather than
// an Authorization header, and reports most failures as {error} members
// embedded in HTTP 200 bodies, so every response is probed for a
// structured error before decoding.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client for the given access token. baseURL and
// client fall back to the public API host and [http.DefaultClient].
func NewClient(token, baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: client,
	}
}

// call performs a request against rawURL and decodes the body into
// result. The access token is merged into the query string; query adds
// further parameters. rawURL may be absolute (pagination next links) or
// produced by endpoint.
func (c *Client) call(ctx context.Context, method, rawURL string, query url.Values, result any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse request url: %w", err)
	}

	q := u.Query()
	for key, values := range query {
		q[key] = values
	}
	if c.token != "" {
		q.Set("access_token", c.token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error statuses sometimes still carry a structured body.
		if apiErr := probeError(body); apiErr != nil {
			return apiErr
		}
		return &HTTPError{StatusCode: resp.StatusCode}
	}

	if apiErr := probeError(body); apiErr != nil {
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// probeError extracts an embedded service error from a response body.
// Bare scalar bodies (mutation endpoints answer `true`) are not errors.
func probeError(body []byte) *Error {
	var probe struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}
	return probe.Error
}

func (c *Client) endpoint(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// listPage fetches one page of a list endpoint. next, when non-empty, is
// the envelope's absolute next-page URL and takes precedence over the
// resource path.
func listPage[T any](ctx context.Context, c *Client, next, format string, args ...any) (*Page[T], error) {
	target := next
	if target == "" {
		target = c.endpoint(format, args...)
	}

	var page Page[T]
	if err := c.call(ctx, http.MethodGet, target, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Me retrieves the authenticated user's identity.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, c.endpoint("/user/me"), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FollowedArtists retrieves one page of the artists a user follows.
func (c *Client) FollowedArtists(ctx context.Context, userID int64, next string) (*Page[Artist], error) {
	return listPage[Artist](ctx, c, next, "/user/%d/artists", userID)
}

// ArtistAlbums retrieves one page of an artist's albums.
func (c *Client) ArtistAlbums(ctx context.Context, artistID int64, next string) (*Page[Album], error) {
	return listPage[Album](ctx, c, next, "/artist/%d/albums", artistID)
}

// AlbumTracks retrieves one page of an album's tracks.
func (c *Client) AlbumTracks(ctx context.Context, albumID int64, next string) (*Page[Track], error) {
	return listPage[Track](ctx, c, next, "/album/%d/tracks", albumID)
}

// History retrieves one page of a user's listening history, newest
// first.
func (c *Client) History(ctx context.Context, userID int64, next string) (*Page[HistoryEntry], error) {
	return listPage[HistoryEntry](ctx, c, next, "/user/%d/history", userID)
}

// PlaylistTracks retrieves one page of a playlist's member tracks.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, next string) (*Page[Track], error) {
	return listPage[Track](ctx, c, next, "/playlist/%s/tracks", playlistID)
}

// Playlist retrieves a playlist by id. Deleted or invalid playlists
// surface as a data-not-found service error.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	var playlist Playlist
	if err := c.call(ctx, http.MethodGet, c.endpoint("/playlist/%s", playlistID), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// SearchPlaylists retrieves one page of playlist search results for the
// given query.
func (c *Client) SearchPlaylists(ctx context.Context, query, next string) (*Page[Playlist], error) {
	target := next
	if target == "" {
		target = c.endpoint("/search/playlist")
	}

	var page Page[Playlist]
	params := url.Values{}
	if next == "" {
		params.Set("q", query)
	}
	if err := c.call(ctx, http.MethodGet, target, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePlaylist creates a playlist owned by the user and returns its
// id.
func (c *Client) CreatePlaylist(ctx context.Context, userID int64, title string) (string, error) {
	params := url.Values{}
	params.Set("title", title)

	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, c.endpoint("/user/%d/playlists", userID), params, &created); err != nil {
		return "", err
	}
	if created.ID == 0 {
		return "", fmt.Errorf("create playlist: response carried no id")
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// AddTracks appends tracks to a playlist. The service answers a bare
// boolean; adding a track already present is rejected with a parameter
// error the executor treats as benign.
func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []int64) (bool, error) {
	return c.mutateTracks(ctx, http.MethodPost, playlistID, trackIDs)
}

// RemoveTracks deletes tracks from a playlist.
func (c *Client) RemoveTracks(ctx context.Context, playlistID string, trackIDs []int64) (bool, error) {
	return c.mutateTracks(ctx, http.MethodDelete, playlistID, trackIDs)
}

func (c *Client) mutateTracks(ctx context.Context, method, playlistID string, trackIDs []int64) (bool, error) {
	params := url.Values{}
	params.Set("songs", joinIDs(trackIDs))

	var ok bool
	if err := c.call(ctx, method, c.endpoint("/playlist/%s/tracks", playlistID), params, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
