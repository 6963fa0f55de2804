package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-credential-client/internal/metrics"
)

func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	corsCfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
	if len(allowedOrigins) == 0 {
		// same-origin only
		corsCfg.AllowOriginFunc = func(string) bool { return false }
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api", localOnly())
	{
		api.GET("/contract/info", h.ContractInfo)

		api.GET("/session", h.Session)
		api.GET("/session/events", h.SessionEvents(newEventStream(allowedOrigins)))
		api.POST("/session/connect", h.Connect)
		api.POST("/session/disconnect", h.Disconnect)
		api.POST("/network/switch", h.SwitchNetwork)

		api.POST("/credentials/issue", h.Issue)
		api.GET("/credentials/verify/:id", h.Verify)
		api.GET("/credentials/:id", h.Get)
		api.POST("/credentials/revoke/:id", h.Revoke)
		api.GET("/credentials/:id/qr", h.QRCode)
		api.GET("/credentials/:id/pdf", h.PDF)

		api.POST("/issuers/authorize", h.AuthorizeIssuer)
		api.GET("/issuers/:address/authorized", h.IsAuthorized)
		api.GET("/issuers/:address/credentials", h.IssuerCredentials)
		api.GET("/recipients/:email/credentials", h.RecipientCredentials)
	}
	return r
}
