package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondConflict sends a 409 Conflict response.
func respondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error
// response. The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Returns the parsed ID or responds with a 400 error and
// returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseOptionalUint parses a form or query value into *uint, nil when empty.
func parseOptionalUint(value string) (*uint, bool) {
	if value == "" {
		return nil, true
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil, false
	}
	id := uint(parsed)
	return &id, true
}

// parseOptionalInt parses a form value into *int, nil when empty.
func parseOptionalInt(value string) (*int, bool) {
	if value == "" {
		return nil, true
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

// contextKeyTemplates marks requests served by a router that loaded HTML
// templates. Without it renderPage answers JSON.
const contextKeyTemplates = "templates_loaded"

func templatesLoaded(c *gin.Context) bool {
	return c.GetBool(contextKeyTemplates)
}

// --- Content Negotiation ---

// isJSONRequest returns true when the client asks for JSON rather than a
// rendered page. Form-posting browsers send Accept: text/html.
func isJSONRequest(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") &&
		!strings.Contains(accept, "text/html")
}

// flashAndRedirect stores a one-shot status message and redirects the
// browser. API clients get the message as JSON with jsonStatus instead.
// Mutating form routes all funnel through here.
func flashAndRedirect(c *gin.Context, sm *auth.SessionManager, jsonStatus int, level, message, target string) {
	if isJSONRequest(c) {
		c.JSON(jsonStatus, gin.H{"message": message, "level": level, "redirect": target})
		return
	}

	sm.PutFlash(c.Request, level, message)
	c.Redirect(http.StatusFound, target)
}
