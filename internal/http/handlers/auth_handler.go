package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smmart/internal/accounts"
	"smmart/internal/auth"
)

const badCredentials = "Unable to authenticate with provided credentials!"

// LoginHandler exchanges email and password for a bearer token.
func LoginHandler(mgr *accounts.Manager, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		user, err := mgr.Authenticate(c.Request.Context(), input.Email, input.Password)
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			fieldError(c, "non_field_errors", badCredentials)
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		token, claims, err := tokens.Issue(user)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": claims.ExpiresAt.Time,
		})
	}
}

// LogoutHandler revokes the token the request was authenticated with.
func LogoutHandler(denylist auth.Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.Current(c)
		if err := denylist.Revoke(c.Request.Context(), p.Claims.ID, p.Claims.ExpiresAt.Time); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
