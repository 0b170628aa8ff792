package auth

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/config"
)

// birthDateLayout is the expected format of the birth date form field.
const birthDateLayout = "2006-01-02"

// isLocalPath validates that a redirect path is local to prevent open
// redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// AuthController handles the register/login/logout endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth) *AuthController {
	// Parse auth templates; absent templates switch rendering to JSON
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		tmpl = nil
	}

	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		rateLimiter:    rateLimiter,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderTemplate(c, "register.html", gin.H{
		"Title":     "Register",
		"CSRFToken": GetCSRFToken(c),
	})
}

// Register handles the registration form submission. New accounts are always
// members; the admin role only comes from seed data.
func (ac *AuthController) Register(c *gin.Context) {
	if ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")

	form := gin.H{
		"Title":     "Register",
		"UserCode":  c.PostForm("user_code"),
		"Fullname":  c.PostForm("fullname"),
		"Username":  c.PostForm("username"),
		"BirthDate": c.PostForm("birth_date"),
		"Position":  c.PostForm("position"),
		"CSRFToken": GetCSRFToken(c),
	}

	if password != confirmPassword {
		form["Error"] = "Passwords do not match"
		ac.renderTemplate(c, "register.html", form)
		return
	}

	var birthDate *time.Time
	if raw := c.PostForm("birth_date"); raw != "" {
		parsed, err := time.Parse(birthDateLayout, raw)
		if err != nil {
			form["Error"] = "Birth date must be in YYYY-MM-DD format"
			ac.renderTemplate(c, "register.html", form)
			return
		}
		birthDate = &parsed
	}

	_, err := ac.service.Register(RegisterInput{
		UserCode:  c.PostForm("user_code"),
		Fullname:  c.PostForm("fullname"),
		Username:  c.PostForm("username"),
		BirthDate: birthDate,
		Position:  c.PostForm("position"),
		Password:  password,
	})
	if err != nil {
		form["Error"] = registrationErrorMessage(err)
		ac.renderTemplate(c, "register.html", form)
		return
	}

	ac.sessionManager.PutFlash(c.Request, FlashSuccess, "Registration successful! Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

func registrationErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return "This username is already taken"
	case errors.Is(err, ErrUserCodeTaken):
		return "This user code is already in use"
	case errors.Is(err, ErrUsernameInvalid):
		return "Username must be 4-80 characters"
	case errors.Is(err, ErrUserCodeInvalid):
		return "User code must be 3-20 characters"
	case errors.Is(err, ErrFullnameInvalid):
		return "Full name must be 2-100 characters"
	case errors.Is(err, ErrPositionRequired):
		return "Position is required"
	case errors.Is(err, ErrBirthDateRequired):
		return "Birth date is required"
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 6 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	default:
		return "Registration failed: " + err.Error()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	next := sanitizeRedirectPath(c.Query("next"))

	ac.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      next,
		"CSRFToken": GetCSRFToken(c),
		"Flash":     ac.sessionManager.PopFlash(c.Request),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":     "Login",
				"Next":      next,
				"Username":  username,
				"CSRFToken": GetCSRFToken(c),
				"Error":     "Too many login attempts. Please try again later.",
			})
			return
		}
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, username)
		}

		ac.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"Username":  username,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Invalid username or password",
		})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, username)
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"Username":  username,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Failed to create session",
		})
		return
	}

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to login. Safe to call without
// an active session.
func (ac *AuthController) Logout(c *gin.Context) {
	_ = ac.sessionManager.DestroySession(c.Request)
	c.Redirect(http.StatusFound, "/login")
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}
