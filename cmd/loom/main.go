// loom is the orchestrator entrypoint: loads configuration, wires a
// backend behind the resilience middleware stack, opens storage, and
// serves a minimal status surface over HTTP.
//
// Grounded on cmd/tarsy/main.go's flag+godotenv+gin.Default() bootstrap,
// reduced to loom's much smaller surface (no database/ent, no services
// layer — just config, backend, storage, and the admin endpoints).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/loom/pkg/backend"
	"github.com/codeready-toolchain/loom/pkg/backend/middleware"
	"github.com/codeready-toolchain/loom/pkg/config"
	"github.com/codeready-toolchain/loom/pkg/events"
	"github.com/codeready-toolchain/loom/pkg/storage"
	"github.com/codeready-toolchain/loom/pkg/tool"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "./loom.yaml"), "path to the loom config file")
	flag.Parse()

	envPath := filepath.Join(filepath.Dir(*configPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v; continuing with existing environment", envPath, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	bus := events.NewBus()

	apiKey := cfg.OpenAIAPIKey
	if cfg.Backend.Provider == "anthropic" {
		apiKey = cfg.AnthropicAPIKey
	}
	base, err := backend.CreateBackend(backend.Config{
		Provider: cfg.Backend.Provider,
		Model:    cfg.Backend.Model,
		APIKey:   apiKey,
	})
	if err != nil {
		log.Fatalf("failed to create backend: %v", err)
	}
	llm := middleware.Compose(base,
		func(b backend.Backend) backend.Backend { return middleware.Logging(b, slog.Default()) },
		func(b backend.Backend) backend.Backend { return middleware.Instrumentation(b, bus) },
		func(b backend.Backend) backend.Backend { return middleware.CircuitBreaker(b, middleware.CircuitBreakerConfig{}) },
		func(b backend.Backend) backend.Backend {
			return middleware.Retry(b, middleware.RetryConfig{MaxRetries: 3, Initial: 200 * time.Millisecond, Factor: 2})
		},
	)

	store, err := storage.MakeStorage(storage.Config{URL: cfg.Storage})
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	tools := tool.NewRegistry()
	stats := tool.NewStats()

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"provider": cfg.Backend.Provider,
			"storage":  cfg.Storage,
			"tools":    len(tools.GetAll()),
		})
	})

	router.POST("/generate", func(c *gin.Context) {
		var req struct {
			Prompt      string  `json:"prompt" binding:"required"`
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			TimeoutMs   int     `json:"timeout_ms"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := llm.Generate(c.Request.Context(), req.Prompt, backend.GenerateOptions{
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			TimeoutMs:   req.TimeoutMs,
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": result.Text, "usage": result.Usage})
	})

	router.POST("/tools/:name/invoke", func(c *gin.Context) {
		t, found := tools.Get(c.Param("name"))
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "tool not found"})
			return
		}
		var input map[string]any
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out, err := tool.InvokeToolMonitored(c.Request.Context(), stats, t, input, tool.InvokeOptions{
			ValidateInput:  true,
			ValidateOutput: true,
			TimeoutMs:      -1,
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	router.GET("/tools/:name/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Get(c.Param("name")))
	})

	router.GET("/runs/:id", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		snapshot, found, err := store.LoadRun(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		history, err := store.LoadHistory(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pipeline": snapshot, "history": history})
	})

	httpPort := getEnv("HTTP_PORT", "8080")
	log.Printf("loom listening on :%s (provider=%s storage=%s)", httpPort, cfg.Backend.Provider, cfg.Storage)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
