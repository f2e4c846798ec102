// Package web is the HTTP edge: webhook endpoints for the telephony
// gateway, the enqueue API, health and static audio. Handlers do parsing,
// auth and encoding only; turn logic lives in the orchestrator.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-voiceagent/internal/config"
	"go-voiceagent/internal/orchestrator"
	"go-voiceagent/internal/store"
	"go-voiceagent/internal/telephony"
)

type Server struct {
	cfg       *config.Config
	repo      *store.Repository
	orch      *orchestrator.Orchestrator
	validator *telephony.Validator
}

func NewServer(cfg *config.Config, repo *store.Repository, orch *orchestrator.Orchestrator) *Server {
	return &Server{
		cfg:       cfg,
		repo:      repo,
		orch:      orch,
		validator: telephony.NewValidator(cfg.TwilioAuthToken, cfg.IsProd()),
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Voice agent is running!",
			"status":  "healthy",
		})
	})

	r.Static("/static/audio", s.cfg.AudioCacheDir)

	r.POST("/voice/qualify", s.handleVoiceTurn)
	r.POST("/voice/status", s.handleCallStatus)
	r.POST("/calls/enqueue", s.handleEnqueue)

	return r
}

func (s *Server) Run() error {
	return s.Router().Run(":" + s.cfg.Port)
}

// formParams flattens the POST form into the map shape signature validation
// expects. Repeated keys don't occur in gateway webhooks.
func formParams(c *gin.Context) map[string]string {
	if err := c.Request.ParseForm(); err != nil {
		return map[string]string{}
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// requestURL rebuilds the public URL the gateway signed. The configured base
// matters because the service usually sits behind a proxy whose internal
// host differs from the signed one.
func (s *Server) requestURL(c *gin.Context) string {
	return s.cfg.PublicBaseURL + c.Request.URL.RequestURI()
}
