package db

import "musicbox/models"

const soundHelix = "https://www.soundhelix.com/examples/mp3/"

// DefaultSongs returns the catalog written when songs.json has to be created.
func DefaultSongs() map[string]models.Song {
	songs := []models.Song{
		{ID: "s1", Title: "Mau Dibawa Kemana", Artist: "Armada", URL: soundHelix + "SoundHelix-Song-2.mp3"},
		{ID: "s2", Title: "Senyumlah", Artist: "Andmesh", URL: soundHelix + "SoundHelix-Song-3.mp3"},
		{ID: "s3", Title: "Lemon", Artist: "Kenzhi Yonezu", URL: soundHelix + "SoundHelix-Song-1.mp3"},
		{ID: "s4", Title: "Wind", Artist: "Akeboshi", URL: "URL_MUSIK_DUMMY_4.mp3"},
		{ID: "s5", Title: "Sparkle", Artist: "RADWIMPS", URL: "URL_MUSIK_DUMMY_5.mp3"},
		{ID: "s6", Title: "Blur", Artist: "Yorushika", URL: "URL_MUSIK_DUMMY_6.mp3"},
		{ID: "s7", Title: "Halu", Artist: "Feby Putri", URL: soundHelix + "SoundHelix-Song-4.mp3"},
		{ID: "s8", Title: "To The Bone", Artist: "Pamungkas", URL: soundHelix + "SoundHelix-Song-5.mp3"},
		{ID: "s9", Title: "Secukupnya", Artist: "Hindia", URL: soundHelix + "SoundHelix-Song-6.mp3"},
		{ID: "s10", Title: "Monokrom", Artist: "Tulus", URL: soundHelix + "SoundHelix-Song-7.mp3"},
	}
	out := make(map[string]models.Song, len(songs))
	for _, s := range songs {
		out[s.ID] = s
	}
	return out
}

// DefaultPlaylists returns the playlists written when playlists.json has to be created.
// They only reference songs from DefaultSongs.
func DefaultPlaylists() map[string]models.Playlist {
	return map[string]models.Playlist{
		"pl1": {ID: "pl1", Name: "Playlist Pop Indonesia Hits", SongIDs: []string{"s1", "s2", "s9", "s10"}},
		"pl2": {ID: "pl2", Name: "Santai Sore OST Anime", SongIDs: []string{"s3", "s4", "s5", "s6"}},
		"pl3": {ID: "pl3", Name: "Indie Favorit", SongIDs: []string{"s7", "s8"}},
	}
}
