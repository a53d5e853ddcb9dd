package handlers

import (
	"grow_controller/internal/logger"
	"grow_controller/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// StreamServer takes over an upgraded websocket until it closes.
type StreamServer interface {
	Serve(conn *websocket.Conn)
}

// Streams are the websocket endpoints. Nil streams are not routed.
type Streams struct {
	GUI      StreamServer
	Actuator StreamServer
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	streams  Streams
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, streams Streams, log *logger.Logger) *Handler {
	return &Handler{services: services, streams: streams, log: logger.OrNop(log).Named("http")}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	if h.streams.GUI != nil {
		router.GET("/ws", h.wsHandler(h.streams.GUI, "gui"))
	}
	if h.streams.Actuator != nil {
		router.GET("/ws/actuator", h.wsHandler(h.streams.Actuator, "actuator"))
	}

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		api.GET("/state", h.getState)
		api.GET("/overview", h.getOverview)
		api.POST("/update", h.requireControl, h.update)
		api.GET("/schedules", h.getSchedules)
		api.GET("/connection", h.getConnection)

		irrigation := api.Group("/irrigation", h.requireControl)
		{
			irrigation.POST("/start", h.startIrrigation)
			irrigation.POST("/cancel", h.cancelIrrigation)
		}

		api.GET("/hardware-history", h.getHardwareHistory)
		api.GET("/sensor-history", h.getSensorHistory)
	}
}
