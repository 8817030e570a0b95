package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PresentRequest is a spend token presented at the register.
type PresentRequest struct {
	Token string `json:"token" binding:"required"`
}

// ChargeRequest is a purchase rung up against a holder's allowance.
type ChargeRequest struct {
	HolderID string `json:"holder_id" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Notes    string `json:"notes"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string    `json:"status"`
	TerminalID string    `json:"terminal_id"`
	Gateway    string    `json:"gateway"`
	Timestamp  time.Time `json:"timestamp"`
}

// MockTerminal simulates a cafeteria point-of-sale register talking to
// the allowance gateway. It adds operator-like latency so load tests
// see realistic timings.
type MockTerminal struct {
	gatewayURL string
	terminalID string
	location   string
	minDelay   time.Duration
	maxDelay   time.Duration
	client     *http.Client
	rng        *rand.Rand
}

func NewMockTerminal(gatewayURL, location string, minDelay, maxDelay time.Duration) *MockTerminal {
	return &MockTerminal{
		gatewayURL: gatewayURL,
		terminalID: "POS_" + uuid.New().String()[:8],
		location:   location,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		client:     &http.Client{Timeout: 10 * time.Second},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *MockTerminal) randomDelay() time.Duration {
	if t.maxDelay <= t.minDelay {
		return t.minDelay
	}
	delta := t.maxDelay - t.minDelay
	return t.minDelay + time.Duration(t.rng.Int63n(int64(delta)))
}

// glance forwards the presented token to the gateway's glance endpoint.
func (t *MockTerminal) glance(token string) (int, []byte, error) {
	time.Sleep(t.randomDelay())

	u := t.gatewayURL + "/api/v1/ledger/glance?token=" + url.QueryEscape(token)
	resp, err := t.client.Get(u)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// charge forwards a purchase to the gateway's charge endpoint.
func (t *MockTerminal) charge(req *ChargeRequest) (int, []byte, error) {
	time.Sleep(t.randomDelay())

	payload := map[string]interface{}{
		"holder_id": req.HolderID,
		"amount":    req.Amount,
		"actor":     t.terminalID,
		"location":  t.location,
	}
	if req.Notes != "" {
		payload["notes"] = req.Notes
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := t.client.Post(t.gatewayURL+"/api/v1/ledger/charge", "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// Handler struct holds the mock terminal and routes
type Handler struct {
	terminal *MockTerminal
}

func NewHandler(terminal *MockTerminal) *Handler {
	return &Handler{terminal: terminal}
}

// Present handles a spend token presented at the register
func (h *Handler) Present(c *gin.Context) {
	var req PresentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("terminal_id", h.terminal.terminalID).
		Msg("Token presented at register")

	status, body, err := h.terminal.glance(req.Token)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "gateway unreachable",
			"details": err.Error(),
		})
		return
	}

	c.Data(status, "application/json; charset=utf-8", body)
}

// Charge handles a purchase against a holder's allowance
func (h *Handler) Charge(c *gin.Context) {
	var req ChargeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("terminal_id", h.terminal.terminalID).
		Str("holder_id", req.HolderID).
		Str("amount", req.Amount).
		Msg("Charge rung up")

	status, body, err := h.terminal.charge(&req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "gateway unreachable",
			"details": err.Error(),
		})
		return
	}

	if status >= 400 {
		log.Warn().
			Str("holder_id", req.HolderID).
			Int("status", status).
			Msg("Charge rejected by gateway")
	}

	c.Data(status, "application/json; charset=utf-8", body)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		TerminalID: h.terminal.terminalID,
		Gateway:    h.terminal.gatewayURL,
		Timestamp:  time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/pos/present", handler.Present)
		v1.POST("/pos/charge", handler.Charge)
		v1.GET("/health", handler.HealthCheck)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	gatewayURL := getEnv("GATEWAY_URL", "http://localhost:8080")
	location := getEnv("POS_LOCATION", "cafeteria-1")
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 800*time.Millisecond)

	log.Info().
		Str("port", port).
		Str("gateway", gatewayURL).
		Str("location", location).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock POS Terminal")

	terminal := NewMockTerminal(gatewayURL, location, minDelay, maxDelay)
	handler := NewHandler(terminal)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
