// Package http is the local UI surface: the frontend reads state and drives
// call operations through it. Nothing here renders anything.
package http

import (
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/call"
	"github.com/jesus-bazan-entel/apoloteams/internal/config"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
	"github.com/jesus-bazan-entel/apoloteams/internal/state"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

type Deps struct {
	Store *state.Store
	Calls *call.Controller
	Conn  *transport.Manager
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

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ApoloSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Store.Snapshot())
	})

	api.GET("/events", func(c *gin.Context) {
		ch := deps.Store.Subscribe()
		defer deps.Store.Unsubscribe(ch)
		c.Stream(func(w io.Writer) bool {
			select {
			case evt, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent("state", evt)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	})

	api.POST("/channels/:id/join", func(c *gin.Context) {
		id := c.Param("id")
		if err := deps.Conn.Send(transport.NewMessage(transport.MsgJoinChannel, transport.ChannelPayload{ChannelID: id})); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"channel_id": id})
	})

	api.POST("/channels/:id/leave", func(c *gin.Context) {
		id := c.Param("id")
		if err := deps.Conn.Send(transport.NewMessage(transport.MsgLeaveChannel, transport.ChannelPayload{ChannelID: id})); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"channel_id": id})
	})

	api.POST("/messages", func(c *gin.Context) {
		var req struct {
			ChannelID string `json:"channel_id"`
			Body      string `json:"body"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.ChannelID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		msg := transport.NewMessage(transport.MsgSendMessage, transport.PostPayload{ChannelID: req.ChannelID, Body: req.Body})
		if err := deps.Conn.Send(msg); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusAccepted)
	})

	calls := api.Group("/calls")

	calls.POST("", func(c *gin.Context) {
		var req struct {
			ChannelID string          `json:"channel_id"`
			PeerID    string          `json:"peer_id"`
			Kind      domain.CallKind `json:"kind"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		if req.Kind == "" {
			req.Kind = domain.CallKindAudio
		}

		var (
			started *domain.Call
			err     error
		)
		if req.PeerID != "" {
			started, err = deps.Calls.StartDirectCall(c.Request.Context(), domain.UserID(req.PeerID), req.Kind)
		} else {
			started, err = deps.Calls.StartCall(c.Request.Context(), domain.ChannelID(req.ChannelID), req.Kind)
		}
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, started)
	})

	calls.POST("/join", func(c *gin.Context) {
		var req struct {
			CallID string          `json:"call_id"`
			Kind   domain.CallKind `json:"kind"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.CallID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		if req.Kind == "" {
			req.Kind = domain.CallKindAudio
		}
		joined, err := deps.Calls.JoinCall(c.Request.Context(), &domain.Call{ID: domain.CallID(req.CallID), Kind: req.Kind})
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, joined)
	})

	calls.POST("/accept", func(c *gin.Context) {
		accepted, err := deps.Calls.Accept(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, accepted)
	})

	calls.POST("/decline", func(c *gin.Context) {
		deps.Calls.Decline()
		c.Status(http.StatusNoContent)
	})

	calls.POST("/leave", func(c *gin.Context) {
		if err := deps.Calls.LeaveCall(c.Request.Context()); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	calls.POST("/end", func(c *gin.Context) {
		if err := deps.Calls.EndCall(c.Request.Context()); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	calls.POST("/toggle/audio", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"muted": deps.Calls.ToggleAudio()})
	})

	calls.POST("/toggle/video", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"video_off": deps.Calls.ToggleVideo()})
	})

	return r
}
