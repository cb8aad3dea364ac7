package deezer

// Resource shapes based on https://developers.deezer.com/api.

// User represents a Deezer account.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Artist represents a followed artist.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Album represents an artist's album. ReleaseDate has date-only
// granularity (2006-01-02).
type Album struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

// Track represents a track. Tracks compare by ID only; ReleaseDate has
// date-only granularity.
type Track struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

// HistoryEntry is one listening-history item: a track plus the Unix
// timestamp of the play. History endpoints deliver entries newest-first.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// Playlist represents a Deezer playlist. Lookup responses carry the
// owner under "creator" while search results use "user"; Owner hides the
// difference.
type Playlist struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Public   bool   `json:"public"`
	NbTracks int    `json:"nb_tracks"`
	Creator  *User  `json:"creator,omitempty"`
	User     *User  `json:"user,omitempty"`
}

// Owner returns the playlist owner's id regardless of which field the
// endpoint populated.
func (p *Playlist) Owner() int64 {
	if p.Creator != nil {
		return p.Creator.ID
	}
	if p.User != nil {
		return p.User.ID
	}
	return 0
}

// Page is one page of a list endpoint's {data, total, next} envelope.
// Next is empty on the final page.
type Page[T any] struct {
	Items []T    `json:"data"`
	Total int    `json:"total"`
	Next  string `json:"next"`
}
