package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/metadata"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/uploads"
)

type testServer struct {
	router  *gin.Engine
	db      *database.Database
	catalog *catalog.Repository
	loans   *loans.Repository
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()

	db, err := database.NewDatabase(filepath.Join(dir, "library.db"), "Admin777", 4)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := config.Auth{
		SessionLifetime:  time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sessionManager, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	service := auth.NewService(db.DB, authCfg)

	avatarStore, err := uploads.NewStore(filepath.Join(dir, "avatars"))
	require.NoError(t, err)
	coverStore, err := uploads.NewStore(filepath.Join(dir, "covers"))
	require.NoError(t, err)

	catalogRepo := catalog.NewRepository(db.DB)
	loansRepo := loans.NewRepository(db.DB)

	router := NewRouter(RouterConfig{
		Database:       db,
		Catalog:        catalogRepo,
		Metadata:       metadata.NewRepository(db.DB),
		Loans:          loansRepo,
		AuthService:    service,
		SessionManager: sessionManager,
		AuthMiddleware: auth.NewMiddleware(service, sessionManager),
		AuthConfig:     authCfg,
		AvatarStore:    avatarStore,
		CoverStore:     coverStore,
		Version:        "test",
	})

	return &testServer{router: router, db: db, catalog: catalogRepo, loans: loansRepo}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func formRequest(path string, form url.Values, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func jsonRequest(method, path string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Accept", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func (s *testServer) register(t *testing.T, username, userCode string) {
	t.Helper()
	w := s.do(formRequest("/register", url.Values{
		"user_code":        {userCode},
		"fullname":         {"Test " + username},
		"username":         {username},
		"birth_date":       {"2000-01-01"},
		"position":         {"Student"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	}, nil))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

func (s *testServer) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	w := s.do(formRequest("/login", url.Values{
		"username": {username},
		"password": {password},
	}, nil))
	require.Equal(t, http.StatusFound, w.Code, "login should redirect: %s", w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "login must set a session cookie")
	return cookies
}

func (s *testServer) createBook(t *testing.T, title string, quantity int) *entities.Book {
	t.Helper()
	author := &entities.Author{Name: "Author of " + title}
	require.NoError(t, s.db.DB.Create(author).Error)
	category := &entities.Category{Name: "Category of " + title}
	require.NoError(t, s.db.DB.Create(category).Error)
	language := &entities.Language{Name: "Language of " + title}
	require.NoError(t, s.db.DB.Create(language).Error)

	book, err := s.catalog.CreateBook(catalog.BookInput{
		Title:      title,
		AuthorID:   author.ID,
		CategoryID: category.ID,
		LanguageID: language.ID,
	}, quantity)
	require.NoError(t, err)
	return book
}

func TestHealthEndpoints(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = s.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestCatalogRequiresLogin(t *testing.T) {
	s := setupTestServer(t)

	// Browsers get redirected to the login page with the destination kept
	w := s.do(httptest.NewRequest(http.MethodGet, "/books/1", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=/books/1", w.Header().Get("Location"))

	// API clients get a plain 401
	w = s.do(jsonRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(formRequest("/login", url.Values{
		"username": {"Admin1"},
		"password": {"wrong"},
	}, nil))
	// Without templates the form re-render falls back to JSON
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
}

func TestSeededAdminCanLogIn(t *testing.T) {
	s := setupTestServer(t)
	cookies := s.login(t, "Admin1", "Admin777")

	w := s.do(jsonRequest(http.MethodGet, "/admin/metadata", cookies))
	assert.Equal(t, http.StatusOK, w.Code)
	// Seeded metadata is visible on the manage page
	assert.Contains(t, w.Body.String(), "Novel")
	assert.Contains(t, w.Body.String(), "Vietnamese")
}

func TestAdminAreaRejectsMembers(t *testing.T) {
	s := setupTestServer(t)
	s.register(t, "member_user", "M001")
	cookies := s.login(t, "member_user", "secret123")

	// Browsers bounce back to the catalog
	req := httptest.NewRequest(http.MethodGet, "/admin/metadata", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := s.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	// API clients get a 403
	w = s.do(jsonRequest(http.MethodGet, "/admin/borrows", cookies))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCatalogListing(t *testing.T) {
	s := setupTestServer(t)
	s.createBook(t, "Dune", 2)
	s.createBook(t, "Neuromancer", 1)

	s.register(t, "reader_one", "R001")
	cookies := s.login(t, "reader_one", "secret123")

	w := s.do(jsonRequest(http.MethodGet, "/", cookies))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")
	assert.Contains(t, w.Body.String(), "Neuromancer")

	// Title filter narrows the listing
	w = s.do(jsonRequest(http.MethodGet, "/?q_title=dune", cookies))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")
	assert.NotContains(t, w.Body.String(), "Neuromancer")
}

func TestBorrowAndReturnFlow(t *testing.T) {
	s := setupTestServer(t)
	book := s.createBook(t, "Dune", 1)

	s.register(t, "reader_two", "R002")
	cookies := s.login(t, "reader_two", "secret123")

	bookURL := "/books/" + itoa(book.ID)

	// Borrow the only copy
	w := s.do(jsonRequest(http.MethodPost, bookURL+"/borrow", cookies))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated, err := s.catalog.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableQuantity)

	// Borrowing the same book again is refused
	w = s.do(jsonRequest(http.MethodPost, bookURL+"/borrow", cookies))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already borrowing")

	// A second reader sees it out of stock
	s.register(t, "reader_three", "R003")
	otherCookies := s.login(t, "reader_three", "secret123")
	w = s.do(jsonRequest(http.MethodPost, bookURL+"/borrow", otherCookies))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "out of stock")

	// Find the outstanding loan and return it
	logs, err := s.loans.ListAll()
	require.NoError(t, err)
	require.Len(t, logs, 1)
	returnURL := "/loans/" + itoa(logs[0].ID) + "/return"

	// The other reader may not return someone else's loan
	w = s.do(jsonRequest(http.MethodPost, returnURL, otherCookies))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(jsonRequest(http.MethodPost, returnURL, cookies))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "/profile", response.Redirect, "members land on their profile after a return")

	updated, err = s.catalog.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AvailableQuantity)

	// Returning again is a harmless no-op
	w = s.do(jsonRequest(http.MethodPost, returnURL, cookies))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already processed")

	updated, err = s.catalog.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AvailableQuantity)
}

func TestAdminReturnRedirectsToHistory(t *testing.T) {
	s := setupTestServer(t)
	book := s.createBook(t, "Dune", 1)

	s.register(t, "reader_four", "R004")
	memberCookies := s.login(t, "reader_four", "secret123")

	w := s.do(jsonRequest(http.MethodPost, "/books/"+itoa(book.ID)+"/borrow", memberCookies))
	require.Equal(t, http.StatusOK, w.Code)

	logs, err := s.loans.ListAll()
	require.NoError(t, err)
	require.Len(t, logs, 1)

	adminCookies := s.login(t, "Admin1", "Admin777")
	w = s.do(jsonRequest(http.MethodPost, "/loans/"+itoa(logs[0].ID)+"/return", adminCookies))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "/admin/borrows", response.Redirect)
}

func TestAdminMetadataManagement(t *testing.T) {
	s := setupTestServer(t)
	cookies := s.login(t, "Admin1", "Admin777")

	// Create a new author
	req := formRequest("/admin/authors", url.Values{"author_name": {"Ursula K. Le Guin"}}, cookies)
	w := s.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/metadata", w.Header().Get("Location"))

	listing := s.do(jsonRequest(http.MethodGet, "/admin/metadata", cookies))
	assert.Contains(t, listing.Body.String(), "Ursula K. Le Guin")

	// Creating the same name again is a silent no-op
	w = s.do(formRequest("/admin/authors", url.Values{"author_name": {"Ursula K. Le Guin"}}, cookies))
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAdminDeleteReferencedCategory(t *testing.T) {
	s := setupTestServer(t)
	book := s.createBook(t, "Dune", 1)
	cookies := s.login(t, "Admin1", "Admin777")

	w := s.do(jsonRequest(http.MethodPost, "/admin/categories/"+itoa(book.CategoryID)+"/delete", cookies))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "books still reference it")
}

func TestAdminCreateAndDeleteBook(t *testing.T) {
	s := setupTestServer(t)
	existing := s.createBook(t, "Template", 1)
	cookies := s.login(t, "Admin1", "Admin777")

	w := s.do(formRequest("/admin/books", url.Values{
		"title":       {"The Dispossessed"},
		"author_id":   {itoa(existing.AuthorID)},
		"category_id": {itoa(existing.CategoryID)},
		"language_id": {itoa(existing.LanguageID)},
		"year":        {"1974"},
		"quantity":    {"3"},
	}, cookies))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	books, err := s.catalog.ListBooks(catalog.Filter{Title: "Dispossessed"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 3, books[0].TotalQuantity)
	assert.Equal(t, 3, books[0].AvailableQuantity)

	w = s.do(formRequest("/admin/books/"+itoa(books[0].ID)+"/delete", url.Values{}, cookies))
	assert.Equal(t, http.StatusFound, w.Code)

	_, err = s.catalog.GetBookByID(books[0].ID)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
