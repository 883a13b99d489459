package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"

	"github.com/jmfer1/go-emergency-alerts/internal/alerting"
	"github.com/jmfer1/go-emergency-alerts/internal/models"
	"github.com/jmfer1/go-emergency-alerts/internal/repository"
	"github.com/jmfer1/go-emergency-alerts/internal/ws"
)

// AlertService is the slice of the alerting service the HTTP layer needs.
type AlertService interface {
	SendAlert(ctx context.Context, req alerting.AlertRequest) (*alerting.AlertResult, error)
	NearbyAlerts(ctx context.Context, origin models.Coordinate, radiusKm float64) ([]alerting.NearbyAlert, error)
	Respond(ctx context.Context, alertID, userID, message string) error
}

// Generator serves the direct question endpoints (/ask, /ask-stream).
type Generator interface {
	Annotate(ctx context.Context, prompt string) (string, error)
	AnnotateStream(ctx context.Context, prompt string, emit func(chunk string) error) error
}

type Handler struct {
	svc    AlertService
	users  repository.UserRepository
	gen    Generator
	stream *ws.Handler
}

func NewHandler(svc AlertService, users repository.UserRepository, gen Generator, stream *ws.Handler) *Handler {
	return &Handler{
		svc:    svc,
		users:  users,
		gen:    gen,
		stream: stream,
	}
}

// RegisterRoutes wires all endpoints. auth guards the mutating and
// generation endpoints when non-nil; health, metrics, and the realtime
// stream stay open.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	guarded := r.Group("/")
	if auth != nil {
		guarded.Use(auth)
	}
	guarded.POST("/send_alert", h.sendAlert)
	guarded.POST("/register", h.register)
	guarded.POST("/alerts/:id/respond", h.respond)
	guarded.POST("/ask", h.ask)
	guarded.POST("/ask-stream", h.askStream)

	r.GET("/alerts", h.nearbyAlerts)
	if h.stream != nil {
		r.GET("/ws/alerts", h.stream.Stream)
	}
	r.GET("/health", h.health)
	r.GET("/metrics", h.metrics)
}

type sendAlertRequest struct {
	Location []float64 `json:"location"` // [lat, lng]
	Message  string    `json:"message"`
}

func (h *Handler) sendAlert(c *gin.Context) {
	var req sendAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if len(req.Location) != 2 || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	res, err := h.svc.SendAlert(c.Request.Context(), alerting.AlertRequest{
		Origin:  &models.Coordinate{Latitude: req.Location[0], Longitude: req.Location[1]},
		Message: req.Message,
	})
	if errors.Is(err, alerting.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if err != nil {
		slog.Error("send_alert failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alert_id":           res.ID,
		"message":            res.Message,
		"responders_alerted": res.RespondersAlerted,
	})
}

func (h *Handler) register(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	coord, ok := parseLocation(body["location"])
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	user := &models.User{
		ID:        models.NewID(),
		Contact:   stringField(body, "contact"),
		Name:      stringField(body, "name"),
		FCMToken:  stringField(body, "fcm_token"),
		Location:  &coord,
		CreatedAt: time.Now(),
	}
	// Any extra fields ride along untouched, document-store style.
	for k, v := range body {
		switch k {
		case "location", "contact", "name", "fcm_token":
		default:
			if user.Attrs == nil {
				user.Attrs = make(map[string]any)
			}
			user.Attrs[k] = v
		}
	}

	if err := h.users.Add(c.Request.Context(), user); err != nil {
		slog.Error("register failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User registered",
		"user_id": user.ID,
	})
}

func (h *Handler) nearbyAlerts(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	radius := 0.0
	if r := c.Query("radius"); r != "" {
		if v, err := strconv.ParseFloat(r, 64); err == nil && v > 0 {
			radius = v
		}
	}

	alerts, err := h.svc.NearbyAlerts(c.Request.Context(), models.Coordinate{Latitude: lat, Longitude: lng}, radius)
	if err != nil {
		slog.Error("nearby alerts query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

type respondRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (h *Handler) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	// Prefer the authenticated identity when the auth middleware ran.
	userID := c.GetString("uid")
	if userID == "" {
		userID = req.UserID
	}

	err := h.svc.Respond(c.Request.Context(), c.Param("id"), userID, req.Message)
	switch {
	case errors.Is(err, alerting.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
	case errors.Is(err, alerting.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case err != nil:
		slog.Error("respond failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record response"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Response recorded"})
	}
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No question provided"})
		return
	}

	resp, err := h.gen.Annotate(c.Request.Context(), req.Question)
	if err != nil {
		slog.Error("generation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": resp})
}

func (h *Handler) askStream(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No question provided"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	err := h.gen.AnnotateStream(c.Request.Context(), req.Question, func(chunk string) error {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; nothing to do but stop the stream.
		slog.Error("stream generation failed", "error", err)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) metrics(c *gin.Context) {
	metrics.WritePrometheus(c.Writer, true)
}

func parseLocation(v any) (models.Coordinate, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return models.Coordinate{}, false
	}
	lat, ok1 := arr[0].(float64)
	lng, ok2 := arr[1].(float64)
	if !ok1 || !ok2 {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Latitude: lat, Longitude: lng}, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
