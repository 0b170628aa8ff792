package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/metadata"
)

const managePage = "/admin/metadata"

// AdminMetadataController manages authors, categories and languages. The
// three entity kinds share identical semantics: create silently skips exact
// duplicates, delete is refused while books reference the entity, and rename
// overwrites the name without a uniqueness re-check.
type AdminMetadataController struct {
	metadata       *metadata.Repository
	sessionManager *auth.SessionManager
}

func NewAdminMetadataController(metadataRepo *metadata.Repository, sessionManager *auth.SessionManager) *AdminMetadataController {
	return &AdminMetadataController{
		metadata:       metadataRepo,
		sessionManager: sessionManager,
	}
}

// ManagePage lists all authors, categories and languages.
func (ctrl *AdminMetadataController) ManagePage(c *gin.Context) {
	authors, err := ctrl.metadata.ListAuthors()
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}
	categories, err := ctrl.metadata.ListCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	languages, err := ctrl.metadata.ListLanguages()
	if err != nil {
		respondInternalError(c, err, "list languages")
		return
	}

	renderPage(c, "manage.html", gin.H{
		"Authors":    authors,
		"Categories": categories,
		"Languages":  languages,
		"Username":   auth.GetUsername(c),
		"IsAdmin":    true,
	})
}

// create handles the shared create flow. An existing exact name is a silent
// no-op, indistinguishable from a fresh insert to the caller.
func (ctrl *AdminMetadataController) create(c *gin.Context, field string, createFn func(string) error) {
	name := strings.TrimSpace(c.PostForm(field))
	if name == "" {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"Name must not be empty.", managePage)
		return
	}

	if err := createFn(name); err != nil {
		respondInternalError(c, err, "create "+field)
		return
	}

	if isJSONRequest(c) {
		c.JSON(http.StatusOK, SuccessResponse{Message: "created"})
		return
	}
	c.Redirect(http.StatusFound, managePage)
}

// deleteEntity handles the shared delete flow; references from books block
// the removal with a user-facing warning instead of a crash.
func (ctrl *AdminMetadataController) deleteEntity(c *gin.Context, deleteFn func(uint) error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := deleteFn(id)
	switch {
	case err == nil:
		if isJSONRequest(c) {
			c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
			return
		}
		c.Redirect(http.StatusFound, managePage)
	case errors.Is(err, metadata.ErrInUse):
		flashAndRedirect(c, ctrl.sessionManager, http.StatusConflict, auth.FlashDanger,
			"Cannot delete: books still reference it.", managePage)
	case errors.Is(err, metadata.ErrNotFound):
		respondNotFound(c, "entity")
	default:
		respondInternalError(c, err, "delete metadata entity")
	}
}

// rename handles the shared rename flow. The new name is written as-is; the
// original behavior performs no uniqueness re-check here.
func (ctrl *AdminMetadataController) rename(c *gin.Context, renameFn func(uint, string) error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"Name must not be empty.", managePage)
		return
	}

	err := renameFn(id, name)
	switch {
	case err == nil:
		if isJSONRequest(c) {
			c.JSON(http.StatusOK, SuccessResponse{Message: "renamed"})
			return
		}
		c.Redirect(http.StatusFound, managePage)
	case errors.Is(err, metadata.ErrNotFound):
		respondNotFound(c, "entity")
	default:
		respondInternalError(c, err, "rename metadata entity")
	}
}

// --- Authors ---

func (ctrl *AdminMetadataController) CreateAuthor(c *gin.Context) {
	ctrl.create(c, "author_name", func(name string) error {
		_, err := ctrl.metadata.CreateAuthor(name)
		return err
	})
}

func (ctrl *AdminMetadataController) RenameAuthor(c *gin.Context) {
	ctrl.rename(c, ctrl.metadata.RenameAuthor)
}

func (ctrl *AdminMetadataController) DeleteAuthor(c *gin.Context) {
	ctrl.deleteEntity(c, ctrl.metadata.DeleteAuthor)
}

// --- Categories ---

func (ctrl *AdminMetadataController) CreateCategory(c *gin.Context) {
	ctrl.create(c, "category_name", func(name string) error {
		_, err := ctrl.metadata.CreateCategory(name)
		return err
	})
}

func (ctrl *AdminMetadataController) RenameCategory(c *gin.Context) {
	ctrl.rename(c, ctrl.metadata.RenameCategory)
}

func (ctrl *AdminMetadataController) DeleteCategory(c *gin.Context) {
	ctrl.deleteEntity(c, ctrl.metadata.DeleteCategory)
}

// --- Languages ---

func (ctrl *AdminMetadataController) CreateLanguage(c *gin.Context) {
	ctrl.create(c, "language_name", func(name string) error {
		_, err := ctrl.metadata.CreateLanguage(name)
		return err
	})
}

func (ctrl *AdminMetadataController) RenameLanguage(c *gin.Context) {
	ctrl.rename(c, ctrl.metadata.RenameLanguage)
}

func (ctrl *AdminMetadataController) DeleteLanguage(c *gin.Context) {
	ctrl.deleteEntity(c, ctrl.metadata.DeleteLanguage)
}
