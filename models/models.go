package models

// Account is a registered user as stored in users.json.
// The email is the key of the users document and is not repeated inside the record.
type Account struct {
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"` // bcrypt hash, persisted but never returned by the API
}

// Identity is the public view of a signed-in user.
// It is what login returns and what a session token resolves to.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Song is an entry of the catalog (songs.json), keyed by ID.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	URL        string `json:"url"`
	Album      string `json:"album,omitempty"`
	Source     string `json:"source,omitempty"`      // e.g. "external" for songs imported from a third-party catalog
	OriginalID string `json:"original_id,omitempty"` // ID of the song in its source catalog
}

// Playlist is a named, ordered list of song IDs (playlists.json), keyed by ID.
// SongIDs never contains the same ID twice.
type Playlist struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	SongIDs []string `json:"song_ids"`
}

// SongInput carries the fields of a song that does not exist in the catalog yet.
type SongInput struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	URL        string `json:"url"`
	Album      string `json:"album,omitempty"`
	Source     string `json:"source,omitempty"`
	OriginalID string `json:"original_id,omitempty"`
}

// SongRef identifies the song to add to a playlist: either an existing catalog ID
// or a full song to create first. Exactly one of the two must be set.
type SongRef struct {
	SongID  string
	NewSong *SongInput
}

// HasSong reports whether id is already a member of the playlist.
func (p Playlist) HasSong(id string) bool {
	for _, existing := range p.SongIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// Clone returns a copy of the playlist that does not share its SongIDs backing array.
func (p Playlist) Clone() Playlist {
	ids := make([]string, len(p.SongIDs))
	copy(ids, p.SongIDs)
	p.SongIDs = ids
	return p
}
