package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/agendahub/notifier/internal/session"
)

// SessionStatus exposes the session state for readiness reporting.
type SessionStatus interface {
	State() session.State
	IsLive() bool
}

type Handler struct {
	db      *sqlx.DB
	session SessionStatus
}

func NewHandler(db *sqlx.DB, session SessionStatus) *Handler {
	return &Handler{
		db:      db,
		session: session,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck reports down when either the store or the messaging
// session is unavailable.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "database connection failed",
		})
		return
	}
	if !h.session.IsLive() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"reason":  "messaging session not live",
			"session": h.session.State().String(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"session": h.session.State().String(),
	})
}
