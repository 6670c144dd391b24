package api

import (
	"net/http"

	"musicbox/db"
	"musicbox/utils"

	"github.com/gin-gonic/gin"
)

// GetSongsHandler lists the catalog.
// @Summary      List the Catalog
// @Description  Returns every known song, ordered by id. Songs added through a `song_object` show up here too.
// @Tags         Songs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Song "All songs."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Router       /api/songs [get]
func GetSongsHandler(c *gin.Context, database *db.Database) {
	c.JSON(http.StatusOK, database.ListSongs())
}

// GetSongByIDHandler returns one song of the catalog.
// @Summary      Get a Song
// @Description  Looks a song up by its catalog id.
// @Tags         Songs
// @Produce      json
// @Security     BearerAuth
// @Param        song_id path string true "Song id" example(s1)
// @Success      200  {object}  models.Song "The song."
// @Failure      401  {object}  utils.APIError "Unauthorized: the token is missing or not a valid session."
// @Failure      404  {object}  utils.APIError "Not Found: no song has this id."
// @Router       /api/songs/{song_id} [get]
func GetSongByIDHandler(c *gin.Context, database *db.Database) {
	id := c.Param("song_id")
	song, found := database.GetSong(id)
	if !found {
		utils.GinNotFound(c, "Song with ID "+id+" not found in the catalog.")
		return
	}
	c.JSON(http.StatusOK, song)
}
