// Package api wires the HTTP surface: route registration, identity
// middleware and the clique role gate.
package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/clique"
	"github.com/cliquepay/cliqued/internal/config"
	"github.com/cliquepay/cliqued/internal/http/api/handlers"
	"github.com/cliquepay/cliqued/internal/ident"
	"github.com/cliquepay/cliqued/internal/media"
	"github.com/cliquepay/cliqued/internal/notify"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	IDs       ident.Generator
	Broker    notify.Broker
	Uploads   media.UploadStore
	Directory *clique.Directory
	Members   *clique.Membership
	Evaluator *clique.Evaluator
}

// RegisterRoutes registers public and authenticated routes.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	eval := deps.Evaluator
	hub := notify.NewHub(deps.Broker, eval)

	apiGroup := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.IDs)
	apiGroup.POST("/register", authHandler.Register)
	apiGroup.POST("/login", authHandler.Login)

	cliqueHandler := handlers.NewCliqueHandler(deps.Directory)
	memberHandler := handlers.NewMemberHandler(deps.Members)
	mediaHandler := handlers.NewMediaHandler(media.NewService(deps.DB, deps.IDs, deps.Broker), deps.Uploads)
	transactionHandler := handlers.NewTransactionHandler(deps.DB)

	// Single-clique fetch is public.
	apiGroup.GET("/cliques/:id", cliqueHandler.Get)

	authed := apiGroup.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	authed.GET("/cliques", cliqueHandler.List)
	authed.POST("/cliques", cliqueHandler.Create)
	authed.PATCH("/cliques/:id", requireCliqueRole(eval, clique.RoleMember), cliqueHandler.Rename)
	authed.DELETE("/cliques/:id", requireCliqueRole(eval, clique.RoleAdmin), cliqueHandler.Delete)

	authed.POST("/cliques/:id/members", requireCliqueRole(eval, clique.RoleAdmin), memberHandler.Add)
	authed.DELETE("/cliques/:id/members", requireCliqueRole(eval, clique.RoleAdmin), memberHandler.Remove)

	authed.GET("/cliques/:id/transactions", requireCliqueRole(eval, clique.RoleMember), transactionHandler.List)

	authed.GET("/cliques/:id/media", requireCliqueRole(eval, clique.RoleMember), mediaHandler.List)
	authed.POST("/cliques/:id/media", requireCliqueRole(eval, clique.RoleMember), mediaHandler.Upload)

	authed.GET("/ws", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request, handlers.UserID(c))
	})
}
