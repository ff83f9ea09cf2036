package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/config"
	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

// Deps carries the shared collaborators handlers need.
type Deps struct {
	Cfg       *config.Config
	Repo      core.SpaceRepository
	NewEngine func() core.MediaEngine
	Sessions  *app.Registry
	Clock     core.Clock
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, deps Deps) *gin.Engine {
	if deps.Cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if deps.Cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(deps.Cfg.Secret))
	r.Use(sessions.Sessions("SpacesSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")
	api.POST("/profile", handleProfile)
	api.GET("/spaces/:spaceId/presence", func(c *gin.Context) { handlePresence(c, deps) })
	api.GET("/spaces/:spaceId/ws", func(c *gin.Context) {
		ctrl := NewSpaceWSController(deps)
		ctrl.HandleSpace(ctx, c)
	})

	return r
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
}

type profileResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// handleProfile persists the durable user identity in the cookie session.
// This is the local storage the controllers resolve identity from.
func handleProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid displayName"})
		return
	}

	sess := sessions.Default(c)
	uid, _ := sess.Get("uid").(string)
	if uid == "" {
		uid = uuid.NewString()
	}
	sess.Set("uid", uid)
	sess.Set("displayName", req.DisplayName)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	log.Info().Str("module", "adapters.http").Str("uid", uid).Msg("profile saved")
	c.JSON(http.StatusOK, profileResponse{ID: uid, DisplayName: req.DisplayName})
}

// handlePresence reports how many live sessions are viewing a space and
// whether the caller's own session is one of them.
func handlePresence(c *gin.Context, deps Deps) {
	spaceID := domain.SpaceID(c.Param("spaceId"))
	viewers := deps.Sessions.SessionsForSpace(spaceID)

	viewing := false
	if s, ok := deps.Sessions.Get(core.SessionID(c.GetString("client_token"))); ok {
		viewing = s.SpaceID() == spaceID
	}
	c.JSON(http.StatusOK, gin.H{"viewers": len(viewers), "viewing": viewing})
}
