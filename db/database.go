package db

import (
	"context"
	"fmt"
	"sync"

	"musicbox/config"
	"musicbox/models"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Document names, one JSON object per name.
const (
	UsersFile     = "users.json"     // email -> Account
	PlaylistsFile = "playlists.json" // playlist id -> Playlist
	SongsFile     = "songs.json"     // song id -> Song
)

// Database holds all application data and manages concurrent access.
//
// Every mutation runs under mu together with the save of the document it touches,
// so two requests can never interleave between changing memory and writing it out.
// If the save fails the in-memory change is undone.
type Database struct {
	mu         sync.RWMutex
	store      *JSONStore
	bcryptCost int

	accounts  map[string]models.Account
	songs     map[string]models.Song
	playlists map[string]models.Playlist
}

// NewBackend builds the document backend selected by cfg.Storage.Backend.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageMinio:
		m := cfg.Storage.Minio
		client, err := minio.New(m.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(m.AccessKey, m.SecretKey, ""),
			Secure: m.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		backend, err := NewMinioBackend(ctx, client, m.Bucket, m.Prefix)
		if err != nil {
			return nil, err
		}
		log.Info("using minio storage", "endpoint", m.Endpoint, "bucket", m.Bucket, "prefix", m.Prefix)
		return backend, nil
	case config.StorageFile, "":
		log.Info("using file storage", "dir", cfg.Storage.DataDir, "backup", cfg.Storage.EnableBackup)
		return NewFileBackend(cfg.Storage.DataDir, cfg.Storage.EnableBackup), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewDatabase loads the users, songs and playlists documents through backend.
// Missing, empty or corrupt documents are replaced: users always starts empty, songs and
// playlists start from the built-in defaults unless cfg.Storage.SeedDefaults is off.
func NewDatabase(ctx context.Context, cfg *config.Config, backend Backend) (*Database, error) {
	db := &Database{
		store:      NewJSONStore(backend),
		bcryptCost: cfg.Auth.BcryptCost,
	}

	defaultSongs := map[string]models.Song{}
	defaultPlaylists := map[string]models.Playlist{}
	if cfg.Storage.SeedDefaults {
		defaultSongs = DefaultSongs()
		defaultPlaylists = DefaultPlaylists()
	}

	documents := []struct {
		name     string
		dst      any
		defaults any
	}{
		{UsersFile, &db.accounts, map[string]models.Account{}},
		{SongsFile, &db.songs, defaultSongs},
		{PlaylistsFile, &db.playlists, defaultPlaylists},
	}
	for _, doc := range documents {
		seeded, err := db.store.Load(ctx, doc.name, doc.dst, doc.defaults)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		if seeded {
			log.Info("initialized document", "name", doc.name)
		}
	}

	// A document holding JSON null decodes into a nil map.
	if db.accounts == nil {
		db.accounts = make(map[string]models.Account)
	}
	if db.songs == nil {
		db.songs = make(map[string]models.Song)
	}
	if db.playlists == nil {
		db.playlists = make(map[string]models.Playlist)
	}
	for id, p := range db.playlists {
		if p.ID == "" {
			p.ID = id
		}
		if p.SongIDs == nil {
			p.SongIDs = []string{}
		}
		db.playlists[id] = p
	}

	log.Info("database ready", "accounts", len(db.accounts), "songs", len(db.songs), "playlists", len(db.playlists))
	return db, nil
}

// save persists one document. The caller must hold the write lock.
func (db *Database) save(ctx context.Context, name string, document any) error {
	if err := db.store.Save(ctx, document, name); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return nil
}
