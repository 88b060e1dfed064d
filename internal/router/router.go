package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agendahub/notifier/internal/middleware"
	"github.com/agendahub/notifier/pkg/logger"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Router is the small operational HTTP surface: health probes, the metrics
// scrape endpoint and the QR pairing image. There is no business API.
type Router struct {
	engine *gin.Engine
}

func NewRouter(log *logger.Logger, handlers ...Handler) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(log))

	root := engine.Group("/")
	for _, h := range handlers {
		h.RegisterRoutes(root)
	}
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Router{engine: engine}
}

// Serve blocks on the listener; callers run it in a goroutine.
func (r *Router) Serve(port int) error {
	return r.engine.Run(fmt.Sprintf(":%d", port))
}
