package handlers

import (
	"net/http"

	"quickbite-api/middleware"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
)

// Register creates a new user account
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.issueToken(c, http.StatusCreated, "Account created successfully", user)
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginInput
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.issueToken(c, http.StatusOK, "Login successful", user)
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.Users.Profile(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req services.ProfilePatch
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.Users.UpdateProfile(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordInput
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), middleware.CallerFrom(c), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	if err := h.Users.DeleteAccount(c.Request.Context(), middleware.CallerFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
