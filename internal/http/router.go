package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts the local API under /api and the embedded UI at the
// root. ui may be nil.
func NewRouter(h *Handler, allowedOrigins []string, ui http.Handler) *gin.Engine {
	r := gin.Default()

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}))
	}
	r.Use(loopbackOnly())

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/state", h.State)
		api.GET("/tokens", h.Tokens)

		api.POST("/connect", h.Connect)
		api.POST("/tab", h.SwitchTab)

		api.POST("/pair", h.SelectPair)
		api.POST("/flip", h.Flip)
		api.POST("/amount", h.SetAmount)
		api.GET("/quote", h.Quote)
		api.POST("/swap", h.Swap)

		api.POST("/pool/pair", h.SelectPoolPair)
		api.POST("/liquidity/amounts", h.SetLiquidityAmounts)
		api.POST("/liquidity/add", h.AddLiquidity)

		api.GET("/positions", h.Positions)
		api.POST("/positions/:id/collect", h.Collect)
		api.POST("/positions/:id/remove", h.Remove)

		api.POST("/notifications/:id/dismiss", h.DismissNotification)
		api.POST("/assistant", h.Assistant)
	}

	if ui != nil {
		r.NoRoute(gin.WrapH(ui))
	}

	return r
}
