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

// Defaults applied to songs created from a song object.
const (
	DefaultAlbum  = "N/A"
	DefaultSource = "external"
)

// GetSong looks a song up by id.
func (db *Database) GetSong(id string) (models.Song, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	song, ok := db.songs[id]
	return song, ok
}

// ListSongs returns the whole catalog ordered by id.
func (db *Database) ListSongs() []models.Song {
	db.mu.RLock()
	defer db.mu.RUnlock()

	songs := make([]models.Song, 0, len(db.songs))
	for _, s := range db.songs {
		songs = append(songs, s)
	}
	slices.SortFunc(songs, func(a, b models.Song) int { return strings.Compare(a.ID, b.ID) })
	return songs
}

// CreateSong adds a song to the catalog and persists songs.json.
func (db *Database) CreateSong(ctx context.Context, input models.SongInput) (models.Song, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.createSongLocked(ctx, input)
}

func (db *Database) createSongLocked(ctx context.Context, input models.SongInput) (models.Song, error) {
	song := models.Song{
		Title:      strings.TrimSpace(input.Title),
		Artist:     strings.TrimSpace(input.Artist),
		URL:        strings.TrimSpace(input.URL),
		Album:      strings.TrimSpace(input.Album),
		Source:     strings.TrimSpace(input.Source),
		OriginalID: strings.TrimSpace(input.OriginalID),
	}
	if song.Title == "" || song.Artist == "" || song.URL == "" {
		return models.Song{}, newError(ErrInvalidInput, `A new song requires "title", "artist" and "url".`)
	}
	if song.Album == "" {
		song.Album = DefaultAlbum
	}
	if song.Source == "" {
		song.Source = DefaultSource
	}
	song.ID = db.nextSongID()

	db.songs[song.ID] = song
	if err := db.save(ctx, SongsFile, db.songs); err != nil {
		delete(db.songs, song.ID)
		return models.Song{}, err
	}

	log.Info("created song", "id", song.ID, "title", song.Title)
	return song, nil
}

// nextSongID prefers s<NNN> from the catalog size and falls back to a random suffix
// when that id is taken. The caller must hold the write lock.
func (db *Database) nextSongID() string {
	id := fmt.Sprintf("s%03d", len(db.songs)+1)
	for {
		if _, taken := db.songs[id]; !taken {
			return id
		}
		id = "s_ext_" + utils.GenerateDashlessUUID()[:6]
	}
}
