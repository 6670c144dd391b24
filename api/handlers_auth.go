package api

import (
	"fmt"
	"net/http"

	"musicbox/db"
	"musicbox/models"
	"musicbox/session"
	"musicbox/utils"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// SignupRequest is the body of POST /api/signup.
type SignupRequest struct {
	Name     string `json:"name" example:"Ana"`
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"pw1"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"pw1"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    models.Identity `json:"user"`
}

// HomeHandler answers the root path so clients can check the server is up.
// @Summary      Welcome Message
// @Description  Returns a short greeting. Useful as a liveness check; it needs no authentication.
// @Tags         General
// @Produce      json
// @Success      200  {object}  utils.MessageResponse  "The server is running."
// @Router       / [get]
func HomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, utils.MessageResponse{Message: "Welcome to the Music Player API!"})
}

// SignupHandler registers a new account.
// @Summary      Create an Account
// @Description  Registers a new user with a display name, an email address and a password.
// @Description
// @Description  The email is the account key and is matched case-insensitively, so `Ana@Example.com` and `ana@example.com` are the same account.
// @Description  The password is stored only as a bcrypt hash. Signing up does not log you in: call `/api/login` afterwards to get a token.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        account body SignupRequest true "Name, email and password. All three are required."
// @Success      201  {object}  utils.MessageResponse "The account was created."
// @Failure      400  {object}  utils.APIError "Bad Request: the body is not valid JSON or a field is missing, or the password is longer than 72 bytes."
// @Failure      409  {object}  utils.APIError "Conflict: an account with this email already exists."
// @Failure      429  {object}  utils.APIError "Too Many Requests: slow down and retry later."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the account could not be saved."
// @Router       /api/signup [post]
func SignupHandler(c *gin.Context, database *db.Database) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, msgInvalidJSON)
		return
	}

	identity, err := database.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.MessageResponse{
		Message: fmt.Sprintf("User %s registered with email %s.", identity.Name, identity.Email),
	})
}

// LoginHandler checks credentials and opens a session.
// @Summary      Log In
// @Description  Exchanges an email and password for a session token.
// @Description
// @Description  Send the token on every protected request as `Authorization: Bearer <token>`.
// @Description  Tokens are random and carry no user data. They stay valid until the server forgets them (a restart for the in-memory registry).
// @Description  A wrong password and an unknown email produce the same 401 response.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Email and password."
// @Success      200  {object}  LoginResponse  "Login succeeded. The body carries the token and the user's public profile."
// @Failure      400  {object}  utils.APIError "Bad Request: the body is not valid JSON or a field is missing."
// @Failure      401  {object}  utils.APIError "Unauthorized: the email or password is wrong."
// @Failure      429  {object}  utils.APIError "Too Many Requests: slow down and retry later."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the session could not be created."
// @Router       /api/login [post]
func LoginHandler(c *gin.Context, database *db.Database, sessions session.Registry) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, msgInvalidJSON)
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.GinBadRequest(c, "Email and password are required.")
		return
	}

	identity, err := database.Verify(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := sessions.Create(c.Request.Context(), identity)
	if err != nil {
		respondError(c, fmt.Errorf("%w: create session: %w", db.ErrInternal, err))
		return
	}

	log.Info("user logged in", "email", identity.Email)
	c.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful!",
		Token:   token,
		User:    identity,
	})
}
