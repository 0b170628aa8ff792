package http

import (
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/metadata"
	"github.com/mrlokans/librarian/internal/uploads"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Catalog  *catalog.Repository
	Metadata *metadata.Repository
	Loans    *loans.Repository

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth

	// CSRF protection (disabled when the secret is empty, e.g. handler tests)
	CSRFSecret    []byte
	SecureCookies bool

	// Uploaded images
	AvatarStore *uploads.Store
	CoverStore  *uploads.Store

	// UI paths; empty TemplatesPath switches controllers to JSON responses
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
}
