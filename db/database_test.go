package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"musicbox/config"
	"musicbox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory Backend whose writes can be made to fail.
type memBackend struct {
	mu         sync.Mutex
	docs       map[string][]byte
	failWrites bool
	writes     int
}

func newMemBackend() *memBackend {
	return &memBackend{docs: make(map[string][]byte)}
}

func (m *memBackend) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memBackend) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errors.New("disk full")
	}
	m.writes++
	m.docs[name] = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) setFailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

func (m *memBackend) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// decode unmarshals a stored document into dst.
func (m *memBackend) decode(t *testing.T, name string, dst any) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Contains(t, m.docs, name)
	require.NoError(t, json.Unmarshal(m.docs[name], dst))
}

func createTestConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Auth.BcryptCost = 4 // minimum cost keeps the tests fast
	return cfg
}

// setupTestDB returns a seeded database backed by an in-memory backend.
func setupTestDB(t *testing.T) (*Database, *memBackend) {
	backend := newMemBackend()
	db, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.NoError(t, err, "NewDatabase failed during setup")
	return db, backend
}

// --- Load Tests ---

func TestNewDatabase_SeedsDefaults(t *testing.T) {
	db, backend := setupTestDB(t)

	assert.Len(t, db.ListSongs(), 10)
	assert.Len(t, db.ListPlaylists(), 3)
	assert.Equal(t, 0, db.AccountCount())

	var users map[string]models.Account
	backend.decode(t, UsersFile, &users)
	assert.Empty(t, users)

	var playlists map[string]models.Playlist
	backend.decode(t, PlaylistsFile, &playlists)
	assert.Equal(t, []string{"s1", "s2", "s9", "s10"}, playlists["pl1"].SongIDs)

	var songs map[string]models.Song
	backend.decode(t, SongsFile, &songs)
	assert.Equal(t, "Lemon", songs["s3"].Title)
}

func TestNewDatabase_NoSeed(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Storage.SeedDefaults = false

	db, err := NewDatabase(context.Background(), cfg, newMemBackend())
	require.NoError(t, err)
	assert.Empty(t, db.ListSongs())
	assert.Empty(t, db.ListPlaylists())
}

func TestNewDatabase_LoadsExistingDocuments(t *testing.T) {
	backend := newMemBackend()
	backend.docs[SongsFile] = []byte(`{"x1": {"id": "x1", "title": "T", "artist": "A", "url": "u"}}`)
	backend.docs[PlaylistsFile] = []byte(`{"p": {"name": "Mine", "song_ids": null}}`)
	backend.docs[UsersFile] = []byte(`null`)

	db, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.NoError(t, err)

	songs := db.ListSongs()
	require.Len(t, songs, 1)
	assert.Equal(t, "x1", songs[0].ID)

	p, err := db.GetPlaylist("p")
	require.NoError(t, err)
	assert.Equal(t, "p", p.ID, "Missing id is filled from the document key")
	assert.NotNil(t, p.SongIDs)
	assert.Empty(t, p.SongIDs)

	_, err = db.Register(context.Background(), "Ann", "ann@example.com", "pw")
	assert.NoError(t, err, "A null users document still yields a usable map")
}

func TestNewDatabase_ReplacesCorruptDocuments(t *testing.T) {
	backend := newMemBackend()
	backend.docs[SongsFile] = []byte(`{not json`)
	backend.docs[PlaylistsFile] = []byte("   \n")

	db, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.NoError(t, err)
	assert.Len(t, db.ListSongs(), 10)
	assert.Len(t, db.ListPlaylists(), 3)

	var songs map[string]models.Song
	backend.decode(t, SongsFile, &songs)
	assert.Len(t, songs, 10, "Corrupt document is overwritten with the defaults")
}

func TestNewDatabase_ReplacesTypeMismatchedDocuments(t *testing.T) {
	backend := newMemBackend()
	backend.docs[SongsFile] = []byte(`{"zz": {"id": "zz", "title": "T", "artist": "A", "url": "https://x"}, "bad": 5}`)
	backend.docs[PlaylistsFile] = []byte(`{"plx": {"id": "plx", "name": "Mine", "song_ids": []}, "broken": {"song_ids": "s1"}}`)

	db, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.NoError(t, err)

	_, found := db.GetSong("zz")
	assert.False(t, found, "Entries decoded before the type error are discarded")
	_, err = db.GetPlaylist("plx")
	assert.ErrorIs(t, err, ErrNotFound)

	var songs map[string]models.Song
	backend.decode(t, SongsFile, &songs)
	assert.Len(t, db.ListSongs(), len(songs), "Memory matches what was persisted")
	assert.NotContains(t, songs, "zz")

	var playlists map[string]models.Playlist
	backend.decode(t, PlaylistsFile, &playlists)
	assert.Len(t, db.ListPlaylists(), len(playlists))
}

func TestNewDatabase_BackendFailure(t *testing.T) {
	backend := newMemBackend()
	backend.setFailWrites(true)

	_, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestNewDatabase_FileBackendRoundTrip(t *testing.T) {
	cfg := createTestConfig(t)
	ctx := context.Background()

	db, err := NewDatabase(ctx, cfg, NewFileBackend(cfg.Storage.DataDir, false))
	require.NoError(t, err)
	created, err := db.CreatePlaylist(ctx, "Road Trip")
	require.NoError(t, err)
	_, err = db.AddSongToPlaylist(ctx, created.ID, models.SongRef{SongID: "s3"})
	require.NoError(t, err)

	for _, name := range []string{UsersFile, SongsFile, PlaylistsFile} {
		assert.FileExists(t, filepath.Join(cfg.Storage.DataDir, name))
	}

	reopened, err := NewDatabase(ctx, cfg, NewFileBackend(cfg.Storage.DataDir, false))
	require.NoError(t, err)
	p, err := reopened.GetPlaylist(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", p.Name)
	assert.Equal(t, []string{"s3"}, p.SongIDs)
}

func TestNewBackend(t *testing.T) {
	cfg := createTestConfig(t)

	backend, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	cfg.Storage.Backend = "tape"
	_, err = NewBackend(context.Background(), cfg)
	assert.Error(t, err)
}

// --- Account Tests ---

func TestDatabase_Register(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	identity, err := db.Register(ctx, "  Alice ", " Alice@Example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.Identity{Name: "Alice", Email: "alice@example.com"}, identity)

	var users map[string]models.Account
	backend.decode(t, UsersFile, &users)
	require.Contains(t, users, "alice@example.com")
	assert.Equal(t, "Alice", users["alice@example.com"].Name)
	assert.NotEqual(t, "secret", users["alice@example.com"].PasswordHash)

	_, err = db.Register(ctx, "Other", "ALICE@example.com", "x")
	assert.ErrorIs(t, err, ErrAlreadyExists, "Emails are compared case-insensitively")

	tests := []struct {
		name, user, email, password string
	}{
		{"Missing name", "", "b@example.com", "pw"},
		{"Blank name", "   ", "b@example.com", "pw"},
		{"Missing email", "Bob", "", "pw"},
		{"Missing password", "Bob", "b@example.com", ""},
		{"Password too long", "Bob", "b@example.com", strings.Repeat("p", MaxPasswordBytes+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Register(ctx, tt.user, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Equal(t, 1, db.AccountCount())

	_, err = db.Register(ctx, "Carol", "carol@example.com", strings.Repeat("p", MaxPasswordBytes))
	assert.NoError(t, err, "A password of exactly the bcrypt limit is accepted")
}

func TestDatabase_Register_PersistFailure(t *testing.T) {
	db, backend := setupTestDB(t)
	backend.setFailWrites(true)

	_, err := db.Register(context.Background(), "Alice", "alice@example.com", "secret")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 0, db.AccountCount(), "Failed registration is rolled back")

	backend.setFailWrites(false)
	_, err = db.Register(context.Background(), "Alice", "alice@example.com", "secret")
	assert.NoError(t, err, "The email is still free after the rollback")
}

func TestDatabase_Verify(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	_, err := db.Register(ctx, "Alice", "alice@example.com", "secret")
	require.NoError(t, err)

	identity, err := db.Verify(ctx, "ALICE@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.Identity{Name: "Alice", Email: "alice@example.com"}, identity)

	_, wrongPassword := db.Verify(ctx, "alice@example.com", "nope")
	_, unknownEmail := db.Verify(ctx, "bob@example.com", "secret")
	assert.ErrorIs(t, wrongPassword, ErrUnauthorized)
	assert.ErrorIs(t, unknownEmail, ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error(), "Failures must not reveal which part was wrong")
}

// --- Catalog Tests ---

func TestDatabase_ListSongs_SortedByID(t *testing.T) {
	db, _ := setupTestDB(t)
	songs := db.ListSongs()
	require.Len(t, songs, 10)
	for i := 1; i < len(songs); i++ {
		assert.Less(t, songs[i-1].ID, songs[i].ID)
	}

	s, ok := db.GetSong("s7")
	assert.True(t, ok)
	assert.Equal(t, "Halu", s.Title)

	_, ok = db.GetSong("s99")
	assert.False(t, ok)
}

func TestDatabase_CreateSong(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	song, err := db.CreateSong(ctx, models.SongInput{Title: "New", Artist: "Band", URL: "http://x/y.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "s011", song.ID)
	assert.Equal(t, DefaultAlbum, song.Album)
	assert.Equal(t, DefaultSource, song.Source)

	var songs map[string]models.Song
	backend.decode(t, SongsFile, &songs)
	assert.Contains(t, songs, "s011")

	_, err = db.CreateSong(ctx, models.SongInput{Title: "No url", Artist: "Band"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDatabase_CreateSong_IDCollision(t *testing.T) {
	backend := newMemBackend()
	backend.docs[SongsFile] = []byte(`{"s002": {"id": "s002", "title": "T", "artist": "A", "url": "u"}}`)
	db, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.NoError(t, err)

	song, err := db.CreateSong(context.Background(), models.SongInput{Title: "X", Artist: "Y", URL: "z"})
	require.NoError(t, err)
	assert.Regexp(t, `^s_ext_[0-9a-f]{6}$`, song.ID)
}

// --- Playlist Tests ---

func TestDatabase_CreatePlaylist(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	p, err := db.CreatePlaylist(ctx, "  Focus  ")
	require.NoError(t, err)
	assert.Equal(t, "pl04", p.ID)
	assert.Equal(t, "Focus", p.Name)
	assert.NotNil(t, p.SongIDs)
	assert.Empty(t, p.SongIDs)

	var playlists map[string]models.Playlist
	backend.decode(t, PlaylistsFile, &playlists)
	assert.Contains(t, playlists, "pl04")

	_, err = db.CreatePlaylist(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDatabase_CreatePlaylist_IDCollision(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	first, err := db.CreatePlaylist(ctx, "A")
	require.NoError(t, err)
	require.Equal(t, "pl04", first.ID)
	_, err = db.DeletePlaylist(ctx, "pl1")
	require.NoError(t, err)

	// Three playlists left, so pl04 is preferred again but taken.
	second, err := db.CreatePlaylist(ctx, "B")
	require.NoError(t, err)
	assert.Regexp(t, `^pl[0-9a-f]{4}$`, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDatabase_CreatePlaylist_Concurrent(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := db.CreatePlaylist(ctx, fmt.Sprintf("list %d", i))
			assert.NoError(t, err)
			ids <- p.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, db.ListPlaylists(), 3+n)
}

func TestDatabase_GetPlaylist_ReturnsCopy(t *testing.T) {
	db, _ := setupTestDB(t)

	p, err := db.GetPlaylist("pl3")
	require.NoError(t, err)
	p.SongIDs[0] = "mutated"

	again, err := db.GetPlaylist("pl3")
	require.NoError(t, err)
	assert.Equal(t, []string{"s7", "s8"}, again.SongIDs)

	_, err = db.GetPlaylist("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabase_DeletePlaylist(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	deleted, err := db.DeletePlaylist(ctx, "pl2")
	require.NoError(t, err)
	assert.Equal(t, "Santai Sore OST Anime", deleted.Name)

	_, err = db.GetPlaylist("pl2")
	assert.ErrorIs(t, err, ErrNotFound)

	var playlists map[string]models.Playlist
	backend.decode(t, PlaylistsFile, &playlists)
	assert.NotContains(t, playlists, "pl2")

	_, err = db.DeletePlaylist(ctx, "pl2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabase_DeletePlaylist_PersistFailure(t *testing.T) {
	db, backend := setupTestDB(t)
	backend.setFailWrites(true)

	_, err := db.DeletePlaylist(context.Background(), "pl1")
	assert.ErrorIs(t, err, ErrInternal)

	p, err := db.GetPlaylist("pl1")
	require.NoError(t, err, "Playlist is restored after a failed save")
	assert.Len(t, p.SongIDs, 4)
}

func TestDatabase_PlaylistSongs(t *testing.T) {
	db, _ := setupTestDB(t)

	songs, err := db.PlaylistSongs("pl1")
	require.NoError(t, err)
	var ids []string
	for _, s := range songs {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"s1", "s2", "s9", "s10"}, ids, "Playlist order is preserved")

	_, err = db.PlaylistSongs("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabase_PlaylistSongs_SkipsDanglingIDs(t *testing.T) {
	backend := newMemBackend()
	backend.docs[PlaylistsFile] = []byte(`{"p": {"id": "p", "name": "P", "song_ids": ["s1", "gone", "s2"]}}`)
	db, err := NewDatabase(context.Background(), createTestConfig(t), backend)
	require.NoError(t, err)

	songs, err := db.PlaylistSongs("p")
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "s1", songs[0].ID)
	assert.Equal(t, "s2", songs[1].ID)
}

func TestDatabase_AddSongToPlaylist(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	res, err := db.AddSongToPlaylist(ctx, "pl3", models.SongRef{SongID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, "Mau Dibawa Kemana", res.Song.Title)
	assert.Equal(t, []string{"s7", "s8", "s1"}, res.Playlist.SongIDs)

	writes := backend.writeCount()
	res, err = db.AddSongToPlaylist(ctx, "pl3", models.SongRef{SongID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, []string{"s7", "s8", "s1"}, res.Playlist.SongIDs, "Songs are never duplicated")
	assert.Equal(t, writes, backend.writeCount(), "A no-op add writes nothing")
}

func TestDatabase_AddSongToPlaylist_SongObject(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	res, err := db.AddSongToPlaylist(ctx, "pl1", models.SongRef{NewSong: &models.SongInput{
		Title: "Imported", Artist: "Someone", URL: "https://cdn.example/imported.mp3", OriginalID: "ext-42",
	}})
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, "s011", res.Song.ID)
	assert.Equal(t, "ext-42", res.Song.OriginalID)
	assert.Equal(t, "s011", res.Playlist.SongIDs[len(res.Playlist.SongIDs)-1])

	_, ok := db.GetSong("s011")
	assert.True(t, ok, "The song object is added to the catalog")

	var songs map[string]models.Song
	backend.decode(t, SongsFile, &songs)
	assert.Contains(t, songs, "s011")
}

func TestDatabase_AddSongToPlaylist_Errors(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		playlist string
		ref      models.SongRef
		want     error
	}{
		{"Neither id nor object", "pl1", models.SongRef{}, ErrInvalidInput},
		{"Both id and object", "pl1", models.SongRef{SongID: "s1", NewSong: &models.SongInput{Title: "t", Artist: "a", URL: "u"}}, ErrInvalidInput},
		{"Unknown playlist", "nope", models.SongRef{SongID: "s1"}, ErrNotFound},
		{"Unknown song", "pl1", models.SongRef{SongID: "s404"}, ErrNotFound},
		{"Incomplete song object", "pl1", models.SongRef{NewSong: &models.SongInput{Title: "t"}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.AddSongToPlaylist(ctx, tt.playlist, tt.ref)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, db.ListSongs(), 10, "Failed adds never create songs")
}

func TestDatabase_AddSongToPlaylist_PersistFailure(t *testing.T) {
	db, backend := setupTestDB(t)
	backend.setFailWrites(true)

	_, err := db.AddSongToPlaylist(context.Background(), "pl3", models.SongRef{SongID: "s1"})
	assert.ErrorIs(t, err, ErrInternal)

	p, err := db.GetPlaylist("pl3")
	require.NoError(t, err)
	assert.Equal(t, []string{"s7", "s8"}, p.SongIDs)
}

func TestDatabase_RemoveSongFromPlaylist(t *testing.T) {
	db, backend := setupTestDB(t)
	ctx := context.Background()

	res, err := db.RemoveSongFromPlaylist(ctx, "pl1", "s2")
	require.NoError(t, err)
	assert.Equal(t, "Senyumlah", res.SongTitle)
	assert.Equal(t, []string{"s1", "s9", "s10"}, res.Playlist.SongIDs)

	var playlists map[string]models.Playlist
	backend.decode(t, PlaylistsFile, &playlists)
	assert.Equal(t, []string{"s1", "s9", "s10"}, playlists["pl1"].SongIDs)

	_, err = db.RemoveSongFromPlaylist(ctx, "pl1", "s2")
	assert.ErrorIs(t, err, ErrNotFound, "Song is no longer a member")
	_, err = db.RemoveSongFromPlaylist(ctx, "nope", "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabase_RemoveSongFromPlaylist_PersistFailure(t *testing.T) {
	db, backend := setupTestDB(t)
	backend.setFailWrites(true)

	_, err := db.RemoveSongFromPlaylist(context.Background(), "pl3", "s7")
	assert.ErrorIs(t, err, ErrInternal)

	p, err := db.GetPlaylist("pl3")
	require.NoError(t, err)
	assert.Equal(t, []string{"s7", "s8"}, p.SongIDs)
}

func TestDatabase_FileBackendPermissions(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	cfg := createTestConfig(t)
	ctx := context.Background()
	db, err := NewDatabase(ctx, cfg, NewFileBackend(cfg.Storage.DataDir, false))
	require.NoError(t, err)

	require.NoError(t, os.Chmod(cfg.Storage.DataDir, 0500))
	t.Cleanup(func() { _ = os.Chmod(cfg.Storage.DataDir, 0755) })

	_, err = db.CreatePlaylist(ctx, "Unwritable")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Len(t, db.ListPlaylists(), 3)
}
