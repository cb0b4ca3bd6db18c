package certificates

import (
	"github.com/gin-gonic/gin"

	"trainhub/admin-portal/admin-portal-backend/internal/auth"
	"trainhub/admin-portal/admin-portal-backend/internal/users"
)

// RegisterPublicRoutes mounts the unauthenticated verification surface.
// These paths are what the QR payload points at, so they stay stable.
func RegisterPublicRoutes(rg *gin.RouterGroup, h *Handler) {
	cert := rg.Group("/certificate")
	{
		cert.GET("/verify/:number", h.Verify)
		cert.GET("/render/:number", h.RenderInfo)
	}
}

// RegisterRoutes mounts the authenticated certificate operations. Issuance
// requires a login; everything backwards-facing requires the admin role.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler, mw *auth.Middleware) {
	certs := rg.Group("/certificates", mw.Authenticate())
	{
		certs.POST("/generate", h.Generate)
	}

	admin := rg.Group("/admin/certificates", mw.Authenticate(), mw.RequireRole(users.RoleAdmin))
	{
		admin.GET("/download/:number", h.Download)
		admin.POST("/:number/render", h.Rerender)
		admin.POST("/:number/revoke", h.Revoke)
	}
}
