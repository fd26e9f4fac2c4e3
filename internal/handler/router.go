package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rentflow/leasesign/pkg/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Health       *HealthHandler
	Signing      *SigningHandler
	Lease        *LeaseHandler
	Addendum     *AddendumHandler
	Verification *VerificationHandler
}

// RouterConfig holds router wiring settings
type RouterConfig struct {
	JWTSecret string
	RateLimit middleware.RateLimitConfig
}

// RegisterRoutes mounts all routes on the engine. The public signing surface
// is rate limited and token-gated; everything else requires a session.
func RegisterRoutes(r *gin.Engine, h *Handlers, cfg *RouterConfig) {
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)

	// Public signing surface. No session: the token is the capability.
	public := r.Group("/sign")
	public.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	{
		public.GET("/:token", h.Signing.ResolveToken)
		public.POST("/:token", h.Signing.SubmitSignature)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.JWTMiddleware(&middleware.JWTConfig{Secret: cfg.JWTSecret}))
	{
		staff := middleware.RequireRole(middleware.RoleLandlord, middleware.RoleStaff)

		leases := api.Group("/leases")
		{
			leases.POST("", staff, h.Lease.Create)
			leases.GET("/:id", h.Lease.Get)
			leases.DELETE("/:id", staff, h.Lease.Delete)
			leases.POST("/:id/send", staff, h.Lease.Send)
			leases.POST("/:id/resend", staff, h.Lease.ResendLink)
			leases.POST("/:id/sign", middleware.RequireRole(middleware.RoleTenant), h.Lease.Sign)
			leases.POST("/:id/countersign", staff, h.Lease.Countersign)
			leases.POST("/:id/terminate", staff, h.Lease.Terminate)
			leases.GET("/:id/document", h.Lease.DownloadDocument)
			leases.GET("/:id/documents", h.Lease.DocumentHistory)
			leases.GET("/:id/verification", h.Verification.VerifyLease)
			leases.POST("/:id/addendums", staff, h.Addendum.Create)
		}

		addendums := api.Group("/addendums")
		{
			addendums.GET("/:id", h.Addendum.Get)
			addendums.POST("/:id/send", staff, h.Addendum.Send)
			addendums.POST("/:id/resend", staff, h.Addendum.ResendLink)
			addendums.POST("/:id/sign", middleware.RequireRole(middleware.RoleTenant), h.Addendum.Sign)
			addendums.POST("/:id/countersign", staff, h.Addendum.Countersign)
			addendums.POST("/:id/void", staff, h.Addendum.Void)
			addendums.GET("/:id/document", h.Addendum.DownloadDocument)
			addendums.GET("/:id/documents", h.Addendum.DocumentHistory)
			addendums.GET("/:id/verification", h.Verification.VerifyAddendum)
		}
	}
}
