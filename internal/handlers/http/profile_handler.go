package http

import (
	"errors"
	"net/http"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/infrastructure/middleware"
	apperrors "streampulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
	}
}

func (h *ProfileHandler) SetupRoutes(router *gin.Engine, auth, optionalAuth gin.HandlerFunc) {
	api := router.Group("/api/v1")
	{
		api.GET("/profiles/:username", optionalAuth, h.GetProfile)

		me := api.Group("/me", auth)
		{
			me.GET("", h.GetOwnProfile)
			me.POST("/profile", h.CompleteProfile)
			me.PUT("/settings", h.UpdateSettings)
		}
	}
}

// profileResponse is the public channel view. The owner's email is only
// included when the caller is the owner.
type profileResponse struct {
	Email      domain.Email              `json:"email,omitempty"`
	Username   domain.Username           `json:"username"`
	ProfilePic string                    `json:"profile_pic"`
	StreamURL  string                    `json:"stream_url,omitempty"`
	IsLive     bool                      `json:"is_live"`
	Followers  int                       `json:"followers"`
	Following  int                       `json:"following,omitempty"`
	Prefs      *domain.NotificationPrefs `json:"prefs,omitempty"`
	Emotes     []domain.Emote            `json:"emotes,omitempty"`

	// FollowedByViewer is only present when the request carried a valid
	// token, so the frontend can render the follow button state.
	FollowedByViewer *bool `json:"followed_by_viewer,omitempty"`
}

func publicProfile(p *domain.Profile) profileResponse {
	return profileResponse{
		Username:   p.Username,
		ProfilePic: p.ProfilePic,
		StreamURL:  p.StreamURL,
		IsLive:     p.IsLive,
		Followers:  len(p.Followers),
		Emotes:     p.Emotes,
	}
}

func ownProfile(p *domain.Profile) profileResponse {
	resp := publicProfile(p)
	resp.Email = p.Email
	resp.Following = len(p.Following)
	resp.Prefs = &p.Prefs
	return resp
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	username := domain.Username(c.Param("username"))

	profile, err := h.profiles.GetByUsername(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.Error(apperrors.NewNotFoundError("profile"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to load profile"))
		return
	}

	viewer := authedEmail(c)
	if viewer == profile.Email {
		c.JSON(http.StatusOK, ownProfile(profile))
		return
	}

	resp := publicProfile(profile)
	if viewer != "" {
		followed := false
		for _, follower := range profile.Followers {
			if follower == viewer {
				followed = true
				break
			}
		}
		resp.FollowedByViewer = &followed
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProfileHandler) GetOwnProfile(c *gin.Context) {
	email := authedEmail(c)
	if email == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	profile, err := h.profiles.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.Error(apperrors.NewNotFoundError("profile"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to load profile"))
		return
	}

	c.JSON(http.StatusOK, ownProfile(profile))
}

type CompleteProfileRequest struct {
	Username   string                   `json:"username" binding:"required,min=3,max=50"`
	ProfilePic string                   `json:"profile_pic"`
	Prefs      domain.NotificationPrefs `json:"prefs"`
}

func (h *ProfileHandler) CompleteProfile(c *gin.Context) {
	email := authedEmail(c)
	if email == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req CompleteProfileRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	profile, err := h.profiles.Complete(c.Request.Context(), email, domain.Username(req.Username), req.ProfilePic, req.Prefs)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			c.Error(apperrors.NewConflictError("username already taken"))
			return
		}
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, ownProfile(profile))
}

type UpdateSettingsRequest struct {
	Prefs      domain.NotificationPrefs `json:"prefs"`
	StreamURL  string                   `json:"stream_url"`
	ProfilePic string                   `json:"profile_pic"`
	Emotes     []domain.Emote           `json:"emotes"`
}

func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	email := authedEmail(c)
	if email == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req UpdateSettingsRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	profile, err := h.profiles.UpdateSettings(c.Request.Context(), email, ports.ProfileSettings{
		Prefs:      req.Prefs,
		StreamURL:  req.StreamURL,
		ProfilePic: req.ProfilePic,
		Emotes:     req.Emotes,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.Error(apperrors.NewNotFoundError("profile"))
			return
		}
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, ownProfile(profile))
}

// authedEmail pulls the identity set by the auth middleware.
func authedEmail(c *gin.Context) domain.Email {
	val, exists := c.Get(middleware.ContextEmailKey)
	if !exists {
		return ""
	}
	email, ok := val.(domain.Email)
	if !ok {
		return ""
	}
	return email
}
