package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"musicbox/db"
	"musicbox/models"
	"musicbox/utils"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// CreatePlaylistRequest is the body of POST /api/playlists.
type CreatePlaylistRequest struct {
	Name string `json:"name" example:"Gym"`
}

// AddSongRequest documents the body of POST /api/playlists/{playlist_id}/songs.
// Exactly one of the two fields must be present.
type AddSongRequest struct {
	SongID     string            `json:"song_id,omitempty" example:"s1"`
	SongObject *models.SongInput `json:"song_object,omitempty"`
}

// PlaylistMessageResponse pairs a human-readable message with the affected playlist.
type PlaylistMessageResponse struct {
	Message  string          `json:"message"`
	Playlist models.Playlist `json:"playlist"`
}

// --- List Playlists ---

// GetPlaylistsHandler lists every playlist.
// @Summary      List Playlists
// @Description  Returns all playlists, ordered by id. Each playlist carries the ids of its songs; use `/api/playlists/{playlist_id}/songs` to get the full song details.
// @Tags         Playlists
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Playlist "All playlists. An empty array when there are none."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Router       /api/playlists [get]
func GetPlaylistsHandler(c *gin.Context, database *db.Database) {
	c.JSON(http.StatusOK, database.ListPlaylists())
}

// --- Create Playlist ---

// CreatePlaylistHandler creates an empty playlist.
// @Summary      Create a Playlist
// @Description  Creates a new, empty playlist with the given name. The server picks the id.
// @Tags         Playlists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        playlist body CreatePlaylistRequest true "The playlist name."
// @Success      201  {object}  models.Playlist "The new playlist, with an empty song list."
// @Failure      400  {object}  utils.APIError "Bad Request: the body is not valid JSON or the name is missing."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the playlist could not be saved."
// @Router       /api/playlists [post]
func CreatePlaylistHandler(c *gin.Context, database *db.Database) {
	var req CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, msgInvalidJSON)
		return
	}

	playlist, err := database.CreatePlaylist(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info("playlist created", "playlist_id", playlist.ID, "by", actingEmail(c))
	c.JSON(http.StatusCreated, playlist)
}

// --- Delete Playlist ---

// DeletePlaylistHandler deletes a playlist. The songs stay in the catalog.
// @Summary      Delete a Playlist
// @Description  Permanently removes a playlist. Songs that were in it remain in the catalog.
// @Tags         Playlists
// @Produce      json
// @Security     BearerAuth
// @Param        playlist_id path string true "Playlist id" example(pl1)
// @Success      200  {object}  utils.MessageResponse "The playlist was deleted."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Failure      404  {object}  utils.APIError "Not Found: no playlist has this id."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the change could not be saved."
// @Router       /api/playlists/{playlist_id} [delete]
func DeletePlaylistHandler(c *gin.Context, database *db.Database) {
	id := c.Param("playlist_id")
	deleted, err := database.DeletePlaylist(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info("playlist deleted", "playlist_id", deleted.ID, "by", actingEmail(c))
	c.JSON(http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("Playlist '%s' (ID: %s) deleted.", deleted.Name, deleted.ID),
	})
}

// --- Playlist Songs ---

// GetPlaylistSongsHandler lists the songs of a playlist.
// @Summary      List Songs in a Playlist
// @Description  Returns the full song records of a playlist in playlist order. Ids that no longer exist in the catalog are skipped.
// @Tags         Playlists
// @Produce      json
// @Security     BearerAuth
// @Param        playlist_id path string true "Playlist id" example(pl1)
// @Success      200  {array}   models.Song "The songs, in order."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Failure      404  {object}  utils.APIError "Not Found: no playlist has this id."
// @Router       /api/playlists/{playlist_id}/songs [get]
func GetPlaylistSongsHandler(c *gin.Context, database *db.Database) {
	songs, err := database.PlaylistSongs(c.Param("playlist_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

// AddSongToPlaylistHandler adds a catalog song, or a new song, to a playlist.
// @Summary      Add a Song to a Playlist
// @Description  Adds one song to the end of a playlist. The body must contain exactly one of:
// @Description
// @Description  * `song_id`: the id of a song already in the catalog.
// @Description  * `song_object`: a song that is not in the catalog yet (for example one found in an external catalog). `title`, `artist` and `url` are required; `album` defaults to "N/A" and `source` to "external". The song is added to the catalog first and gets a new id.
// @Description
// @Description  Adding a song that is already in the playlist is not an error: the playlist is returned unchanged and the message says so.
// @Tags         Playlists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        playlist_id path string true "Playlist id" example(pl1)
// @Param        song body AddSongRequest true "Either song_id or song_object."
// @Success      200  {object}  PlaylistMessageResponse "The song was added, or was already present."
// @Failure      400  {object}  utils.APIError "Bad Request: invalid JSON, both or neither field given, or the song object is incomplete."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Failure      404  {object}  utils.APIError "Not Found: the playlist or the song id does not exist."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the change could not be saved."
// @Router       /api/playlists/{playlist_id}/songs [post]
func AddSongToPlaylistHandler(c *gin.Context, database *db.Database) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		utils.GinBadRequest(c, msgInvalidJSON)
		return
	}

	ref, err := parseSongRef(body)
	if err != nil {
		utils.GinBadRequest(c, err.Error())
		return
	}

	result, err := database.AddSongToPlaylist(c.Request.Context(), c.Param("playlist_id"), ref)
	if err != nil {
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("Song '%s' added to playlist '%s'.", result.Song.Title, result.Playlist.Name)
	if result.Added {
		log.Info("song added to playlist", "playlist_id", result.Playlist.ID, "song_id", result.Song.ID, "by", actingEmail(c))
	} else {
		message = fmt.Sprintf("Song '%s' is already in playlist '%s'.", result.Song.Title, result.Playlist.Name)
	}
	c.JSON(http.StatusOK, PlaylistMessageResponse{Message: message, Playlist: result.Playlist})
}

// parseSongRef picks song_id and song_object out of an add-song body.
// Null values count as absent.
func parseSongRef(body []byte) (models.SongRef, error) {
	var ref models.SongRef

	songID := gjson.GetBytes(body, "song_id")
	switch songID.Type {
	case gjson.Null:
	case gjson.String:
		ref.SongID = songID.String()
	default:
		return ref, errors.New(`"song_id" must be a string.`)
	}

	songObject := gjson.GetBytes(body, "song_object")
	switch {
	case songObject.Type == gjson.Null:
	case songObject.IsObject():
		var input models.SongInput
		if err := json.Unmarshal([]byte(songObject.Raw), &input); err != nil {
			return ref, errors.New(`"song_object" fields must be strings.`)
		}
		ref.NewSong = &input
	default:
		return ref, errors.New(`"song_object" must be an object.`)
	}

	return ref, nil
}

// RemoveSongFromPlaylistHandler removes a song from a playlist.
// @Summary      Remove a Song from a Playlist
// @Description  Removes a song from a playlist. The song itself stays in the catalog.
// @Tags         Playlists
// @Produce      json
// @Security     BearerAuth
// @Param        playlist_id path string true "Playlist id" example(pl1)
// @Param        song_id     path string true "Song id" example(s1)
// @Success      200  {object}  PlaylistMessageResponse "The song was removed. The body carries the updated playlist."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Failure      404  {object}  utils.APIError "Not Found: the playlist does not exist or does not contain the song."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the change could not be saved."
// @Router       /api/playlists/{playlist_id}/songs/{song_id} [delete]
func RemoveSongFromPlaylistHandler(c *gin.Context, database *db.Database) {
	result, err := database.RemoveSongFromPlaylist(c.Request.Context(), c.Param("playlist_id"), c.Param("song_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info("song removed from playlist", "playlist_id", result.Playlist.ID, "song_id", c.Param("song_id"), "by", actingEmail(c))
	c.JSON(http.StatusOK, PlaylistMessageResponse{
		Message:  fmt.Sprintf("Song '%s' removed from playlist '%s'.", result.SongTitle, result.Playlist.Name),
		Playlist: result.Playlist,
	})
}
