package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	// Load HTML templates when a UI bundle is configured; without one the
	// controllers answer JSON.
	hasTemplates := false
	if cfg.TemplatesPath != "" {
		tmpl, err := template.ParseGlob(cfg.TemplatesPath + "/*.html")
		if err == nil {
			router.SetHTMLTemplate(tmpl)
			hasTemplates = true
		}
	}
	router.Use(func(c *gin.Context) {
		c.Set(contextKeyTemplates, hasTemplates)
		c.Next()
	})

	// Serve static assets and the uploaded image buckets
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.AvatarStore != nil {
		router.Static("/uploads/avatars", cfg.AvatarStore.Dir())
	}
	if cfg.CoverStore != nil {
		router.Static("/uploads/covers", cfg.CoverStore.Dir())
	}

	// Register/login/logout
	if cfg.AuthService != nil && cfg.SessionManager != nil {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
		authController.RegisterRoutes(router)
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	catalogController := NewCatalogController(cfg.Catalog, cfg.Metadata)
	loansController := NewLoansController(cfg.Loans, cfg.SessionManager)
	profileController := NewProfileController(cfg.AuthService, cfg.SessionManager, cfg.Loans, cfg.AvatarStore)
	adminBooks := NewAdminBooksController(cfg.Catalog, cfg.Metadata, cfg.SessionManager, cfg.CoverStore)
	adminMetadata := NewAdminMetadataController(cfg.Metadata, cfg.SessionManager)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Catalog
	router.GET("/", catalogController.Index)
	router.GET("/books/:id", catalogController.Show)

	// Borrowing
	router.POST("/books/:id/borrow", loansController.Borrow)
	router.POST("/loans/:id/return", loansController.Return)

	// Profile
	router.GET("/profile", profileController.ProfilePage)
	router.POST("/profile", profileController.UpdateProfile)
	router.POST("/profile/password", profileController.ChangePassword)

	// Management area; non-admins bounce back to the catalog with a warning
	admin := router.Group("/admin")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}

	admin.GET("/borrows", loansController.History)

	admin.GET("/books/new", adminBooks.NewBookPage)
	admin.POST("/books", adminBooks.CreateBook)
	admin.GET("/books/:id/edit", adminBooks.EditBookPage)
	admin.POST("/books/:id", adminBooks.UpdateBook)
	admin.POST("/books/:id/delete", adminBooks.DeleteBook)

	admin.GET("/metadata", adminMetadata.ManagePage)
	admin.POST("/authors", adminMetadata.CreateAuthor)
	admin.POST("/authors/:id", adminMetadata.RenameAuthor)
	admin.POST("/authors/:id/delete", adminMetadata.DeleteAuthor)
	admin.POST("/categories", adminMetadata.CreateCategory)
	admin.POST("/categories/:id", adminMetadata.RenameCategory)
	admin.POST("/categories/:id/delete", adminMetadata.DeleteCategory)
	admin.POST("/languages", adminMetadata.CreateLanguage)
	admin.POST("/languages/:id", adminMetadata.RenameLanguage)
	admin.POST("/languages/:id/delete", adminMetadata.DeleteLanguage)

	return router
}
