package qr

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// challengeTTL matches the provider's pairing code rotation; stale codes are
// useless to scan.
const challengeTTL = 2 * time.Minute

// Handler serves the latest pairing challenge as a scannable PNG. It doubles
// as a session.QRSink: the session Manager pushes each fresh challenge here.
type Handler struct {
	mu         sync.RWMutex
	code       string
	receivedAt time.Time
}

func NewHandler() *Handler {
	return &Handler{}
}

// PresentQR stores the raw challenge payload. Never parses it.
func (h *Handler) PresentQR(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.code = code
	h.receivedAt = time.Now()
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/qr", h.ServeQR)
}

func (h *Handler) ServeQR(c *gin.Context) {
	h.mu.RLock()
	code := h.code
	receivedAt := h.receivedAt
	h.mu.RUnlock()

	if code == "" || time.Since(receivedAt) > challengeTTL {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no pairing challenge pending",
		})
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 512)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to render QR code",
		})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
