// Package httpapi serves the tool surface over HTTP so other processes can
// query the catalog and place orders without going through the model.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	toolx "github.com/trungdn/milk-sell-agent/agent/tool"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" split_words:"true" default:"30s"`
}

// NewRouter builds the gin engine: health probe, tool listing and tool
// execution. Handlers answer tool-level failures with the ToolResult
// payload and reserve 500 for storage or transport breakage.
func NewRouter(registry *toolx.Registry, cfg Config) *gin.Engine {
	log := logx.Component("httpapi")

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(requestTimeout(timeout))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "milk-sell-agent"})
	})
	router.GET("/tools", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tools": registry.Infos()})
	})
	router.POST("/tools/:name", executeTool(registry, log))

	return router
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func executeTool(registry *toolx.Registry, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if !registry.Has(name) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("tool=%s is not available", name)})
			return
		}

		// An empty body means no arguments.
		args := map[string]any{}
		if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
			return
		}

		result, err := registry.Execute(c.Request.Context(), name, args)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("tool execution failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
