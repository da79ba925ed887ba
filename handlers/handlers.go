// Package handlers adapts the services to gin. Handlers bind input, call one
// service method and render the result or its apperr kind.
package handlers

import (
	"quickbite-api/apperr"
	"quickbite-api/middleware"
	"quickbite-api/models"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Handler struct {
	Users       *services.UserService
	Restaurants *services.RestaurantService
	Menu        *services.MenuService
	Orders      *services.OrderService
	Tokens      *middleware.TokenManager

	// OAuth is nil when Google sign-in is not configured.
	OAuth       *oauth2.Config
	UserInfoURL string // defaults to Google's userinfo endpoint
	FrontendURL string
	Log         *zap.Logger
}

func New(d services.Deps, tokens *middleware.TokenManager, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	d.Log = log
	return &Handler{
		Users:       services.NewUserService(d),
		Restaurants: services.NewRestaurantService(d),
		Menu:        services.NewMenuService(d),
		Orders:      services.NewOrderService(d),
		Tokens:      tokens,
		Log:         log,
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, body := apperr.Response(err)
	if apperr.KindOf(err) == apperr.KindInternal {
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the body into v and answers 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return false
	}
	return true
}

func userSummary(u *models.User) gin.H {
	return gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}

// issueToken answers with a fresh token and the user summary.
func (h *Handler) issueToken(c *gin.Context, status int, message string, u *models.User) {
	token, err := h.Tokens.GenerateToken(u)
	if err != nil {
		h.respondError(c, apperr.Internal(err, "failed to generate token"))
		return
	}
	c.JSON(status, gin.H{
		"message": message,
		"token":   token,
		"user":    userSummary(u),
	})
}
