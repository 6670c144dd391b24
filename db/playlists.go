package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"musicbox/models"
	"musicbox/utils"

	"github.com/charmbracelet/log"
)

// AddResult describes the outcome of AddSongToPlaylist.
type AddResult struct {
	Playlist models.Playlist
	Song     models.Song
	Added    bool // false when the song was already in the playlist
}

// RemoveResult describes the outcome of RemoveSongFromPlaylist.
type RemoveResult struct {
	Playlist  models.Playlist
	SongTitle string
}

// ListPlaylists returns every playlist ordered by id.
func (db *Database) ListPlaylists() []models.Playlist {
	db.mu.RLock()
	defer db.mu.RUnlock()

	playlists := make([]models.Playlist, 0, len(db.playlists))
	for _, p := range db.playlists {
		playlists = append(playlists, p.Clone())
	}
	slices.SortFunc(playlists, func(a, b models.Playlist) int { return strings.Compare(a.ID, b.ID) })
	return playlists
}

// GetPlaylist returns a copy of the playlist with the given id.
func (db *Database) GetPlaylist(id string) (models.Playlist, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	p, ok := db.playlists[id]
	if !ok {
		return models.Playlist{}, playlistNotFound(id)
	}
	return p.Clone(), nil
}

// CreatePlaylist creates an empty playlist and persists playlists.json.
func (db *Database) CreatePlaylist(ctx context.Context, name string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, newError(ErrInvalidInput, `Playlist name ("name") is required.`)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	p := models.Playlist{ID: db.nextPlaylistID(), Name: name, SongIDs: []string{}}
	db.playlists[p.ID] = p
	if err := db.save(ctx, PlaylistsFile, db.playlists); err != nil {
		delete(db.playlists, p.ID)
		return models.Playlist{}, err
	}

	log.Info("created playlist", "id", p.ID, "name", p.Name)
	return p.Clone(), nil
}

// DeletePlaylist removes a playlist and returns it as it was before deletion.
func (db *Database) DeletePlaylist(ctx context.Context, id string) (models.Playlist, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.playlists[id]
	if !ok {
		return models.Playlist{}, playlistNotFound(id)
	}

	delete(db.playlists, id)
	if err := db.save(ctx, PlaylistsFile, db.playlists); err != nil {
		db.playlists[id] = p
		return models.Playlist{}, err
	}

	log.Info("deleted playlist", "id", id, "name", p.Name)
	return p.Clone(), nil
}

// PlaylistSongs resolves the songs of a playlist in playlist order.
// Ids that are no longer in the catalog are skipped.
func (db *Database) PlaylistSongs(id string) ([]models.Song, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	p, ok := db.playlists[id]
	if !ok {
		return nil, playlistNotFound(id)
	}

	songs := make([]models.Song, 0, len(p.SongIDs))
	for _, songID := range p.SongIDs {
		if s, found := db.songs[songID]; found {
			songs = append(songs, s)
		} else {
			log.Debug("playlist references unknown song", "playlist", id, "song", songID)
		}
	}
	return songs, nil
}

// AddSongToPlaylist appends a song to a playlist.
//
// The playlist is looked up first. ref must then name either an existing catalog song
// or a new song, which is created in the catalog first. Adding a song that is already a member succeeds with Added false and
// writes nothing.
func (db *Database) AddSongToPlaylist(ctx context.Context, id string, ref models.SongRef) (AddResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.playlists[id]
	if !ok {
		return AddResult{}, playlistNotFound(id)
	}

	hasID := strings.TrimSpace(ref.SongID) != ""
	hasObject := ref.NewSong != nil
	if hasID == hasObject {
		return AddResult{}, newError(ErrInvalidInput, `Provide either "song_id" (a catalog song) or "song_object" (a new song).`)
	}

	var song models.Song
	created := false
	if hasID {
		songID := strings.TrimSpace(ref.SongID)
		song, ok = db.songs[songID]
		if !ok {
			return AddResult{}, newError(ErrNotFound, "Song with ID %s not found in the catalog.", songID)
		}
	} else {
		s, err := db.createSongLocked(ctx, *ref.NewSong)
		if err != nil {
			return AddResult{}, err
		}
		song, created = s, true
	}

	if p.HasSong(song.ID) {
		return AddResult{Playlist: p.Clone(), Song: song, Added: false}, nil
	}

	updated := p.Clone()
	updated.SongIDs = append(updated.SongIDs, song.ID)
	db.playlists[id] = updated
	if err := db.save(ctx, PlaylistsFile, db.playlists); err != nil {
		db.playlists[id] = p
		if created {
			delete(db.songs, song.ID)
			if undoErr := db.save(ctx, SongsFile, db.songs); undoErr != nil {
				log.Error("failed to undo song creation", "song", song.ID, "error", undoErr)
			}
		}
		return AddResult{}, err
	}

	log.Info("added song to playlist", "playlist", id, "song", song.ID)
	return AddResult{Playlist: updated.Clone(), Song: song, Added: true}, nil
}

// RemoveSongFromPlaylist removes one song from a playlist.
// The song is reported by title when the catalog still has it, by id otherwise.
func (db *Database) RemoveSongFromPlaylist(ctx context.Context, id, songID string) (RemoveResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.playlists[id]
	if !ok {
		return RemoveResult{}, playlistNotFound(id)
	}
	if !p.HasSong(songID) {
		return RemoveResult{}, newError(ErrNotFound, "Song ID %s is not in playlist '%s'.", songID, p.Name)
	}

	updated := p.Clone()
	updated.SongIDs = slices.DeleteFunc(updated.SongIDs, func(s string) bool { return s == songID })
	db.playlists[id] = updated
	if err := db.save(ctx, PlaylistsFile, db.playlists); err != nil {
		db.playlists[id] = p
		return RemoveResult{}, err
	}

	title := songID
	if s, found := db.songs[songID]; found {
		title = s.Title
	}
	log.Info("removed song from playlist", "playlist", id, "song", songID)
	return RemoveResult{Playlist: updated.Clone(), SongTitle: title}, nil
}

// nextPlaylistID prefers pl<NN> from the playlist count and falls back to a random
// suffix when that id is taken. The caller must hold the write lock.
func (db *Database) nextPlaylistID() string {
	id := fmt.Sprintf("pl%02d", len(db.playlists)+1)
	for {
		if _, taken := db.playlists[id]; !taken {
			return id
		}
		id = "pl" + utils.GenerateDashlessUUID()[:4]
	}
}

func playlistNotFound(id string) error {
	return newError(ErrNotFound, "Playlist with ID %s not found.", id)
}
