package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/metadata"
)

// CatalogController serves the book listing and detail pages.
type CatalogController struct {
	catalog  *catalog.Repository
	metadata *metadata.Repository
}

func NewCatalogController(catalogRepo *catalog.Repository, metadataRepo *metadata.Repository) *CatalogController {
	return &CatalogController{
		catalog:  catalogRepo,
		metadata: metadataRepo,
	}
}

// Index lists books, narrowed by the q_title/q_author/q_category/q_language
// query filters. Filters compose with AND; the result is ordered by title.
func (ctrl *CatalogController) Index(c *gin.Context) {
	filter := catalog.Filter{
		Title:      c.Query("q_title"),
		AuthorName: c.Query("q_author"),
	}

	if categoryID, ok := parseOptionalUint(c.Query("q_category")); ok && categoryID != nil {
		filter.CategoryID = *categoryID
	}
	if languageID, ok := parseOptionalUint(c.Query("q_language")); ok && languageID != nil {
		filter.LanguageID = *languageID
	}

	books, err := ctrl.catalog.ListBooks(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	// Category and language lists feed the filter dropdowns.
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

	renderPage(c, "index.html", gin.H{
		"Books":      books,
		"Categories": categories,
		"Languages":  languages,
		"QTitle":     c.Query("q_title"),
		"QAuthor":    c.Query("q_author"),
		"QCategory":  c.Query("q_category"),
		"QLanguage":  c.Query("q_language"),
		"Username":   auth.GetUsername(c),
		"IsAdmin":    auth.IsAdmin(c),
	})
}

// Show renders one book with its author, category and language.
func (ctrl *CatalogController) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := ctrl.catalog.GetBookByID(id)
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	renderPage(c, "view_book.html", gin.H{
		"Book":     book,
		"Username": auth.GetUsername(c),
		"IsAdmin":  auth.IsAdmin(c),
	})
}

// renderPage renders an HTML template when templates are loaded, or answers
// JSON so the handlers stay usable (and testable) without a UI bundle.
func renderPage(c *gin.Context, name string, data gin.H) {
	if templatesLoaded(c) {
		c.HTML(http.StatusOK, name, data)
		return
	}
	c.JSON(http.StatusOK, data)
}
