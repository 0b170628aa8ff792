package catalog

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_catalog_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Author{},
		&entities.Category{},
		&entities.Language{},
		&entities.Book{},
		&entities.BorrowLog{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, repo, cleanup
}

type testMetadata struct {
	author   *entities.Author
	category *entities.Category
	language *entities.Language
}

func createTestMetadata(t *testing.T, db *gorm.DB, authorName, categoryName, languageName string) testMetadata {
	author := &entities.Author{Name: authorName}
	require.NoError(t, db.Create(author).Error)
	category := &entities.Category{Name: categoryName}
	require.NoError(t, db.Create(category).Error)
	language := &entities.Language{Name: languageName}
	require.NoError(t, db.Create(language).Error)
	return testMetadata{author: author, category: category, language: language}
}

func (m testMetadata) input(title string) BookInput {
	return BookInput{
		Title:      title,
		AuthorID:   m.author.ID,
		CategoryID: m.category.ID,
		LanguageID: m.language.ID,
	}
}

func TestRepository_CreateBook(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")

	year := 1965
	in := meta.input("Dune")
	in.Year = &year
	in.Summary = "Desert planet politics."

	book, err := repo.CreateBook(in, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, book.TotalQuantity)
	assert.Equal(t, 4, book.AvailableQuantity)
	assert.Equal(t, entities.DefaultBookCover, book.ImageFile)
	require.NotNil(t, book.Year)
	assert.Equal(t, 1965, *book.Year)
}

func TestRepository_CreateBook_QuantityCoercion(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "A", "B", "C")

	// A negative quantity falls back to a single copy
	book, err := repo.CreateBook(meta.input("Negative"), -5)
	require.NoError(t, err)
	assert.Equal(t, 1, book.TotalQuantity)
	assert.Equal(t, 1, book.AvailableQuantity)

	// Zero is accepted as-is
	book, err = repo.CreateBook(meta.input("Zero"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, book.TotalQuantity)
	assert.Equal(t, 0, book.AvailableQuantity)
}

func TestRepository_GetBookByID(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	created, err := repo.CreateBook(meta.input("Dune"), 1)
	require.NoError(t, err)

	book, err := repo.GetBookByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author.Name)
	assert.Equal(t, "Sci-Fi", book.Category.Name)
	assert.Equal(t, "English", book.Language.Name)

	_, err = repo.GetBookByID(9999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_ListBooks_Filters(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	herbert := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	christie := createTestMetadata(t, db, "Agatha Christie", "Detective", "French")

	_, err := repo.CreateBook(herbert.input("Dune"), 1)
	require.NoError(t, err)
	_, err = repo.CreateBook(herbert.input("Dune Messiah"), 1)
	require.NoError(t, err)
	_, err = repo.CreateBook(christie.input("Murder on the Orient Express"), 1)
	require.NoError(t, err)

	// No filter: everything, title ascending
	books, err := repo.ListBooks(Filter{})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Dune Messiah", books[1].Title)
	assert.Equal(t, "Murder on the Orient Express", books[2].Title)

	// Case-insensitive title substring
	books, err = repo.ListBooks(Filter{Title: "dune"})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	// Case-insensitive author substring
	books, err = repo.ListBooks(Filter{AuthorName: "christie"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Murder on the Orient Express", books[0].Title)

	// Exact category id
	books, err = repo.ListBooks(Filter{CategoryID: herbert.category.ID})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	// Exact language id
	books, err = repo.ListBooks(Filter{LanguageID: christie.language.ID})
	require.NoError(t, err)
	assert.Len(t, books, 1)

	// Filters compose with AND
	books, err = repo.ListBooks(Filter{Title: "dune", AuthorName: "christie"})
	require.NoError(t, err)
	assert.Empty(t, books)

	books, err = repo.ListBooks(Filter{Title: "dune", CategoryID: herbert.category.ID})
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestRepository_UpdateBook(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	book, err := repo.CreateBook(meta.input("Dnue"), 2)
	require.NoError(t, err)

	in := meta.input("Dune")
	in.Summary = "Fixed the typo."
	err = repo.UpdateBook(book.ID, in, 5)
	require.NoError(t, err)

	updated, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", updated.Title)
	assert.Equal(t, "Fixed the typo.", updated.Summary)
	assert.Equal(t, 5, updated.TotalQuantity)
	assert.Equal(t, 5, updated.AvailableQuantity)
}

func TestRepository_UpdateBook_QuantityReconciledAgainstLoans(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	book, err := repo.CreateBook(meta.input("Dune"), 5)
	require.NoError(t, err)

	user := &entities.User{Username: "reader", UserCode: "U-1", Fullname: "Reader", Position: "Student", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&entities.BorrowLog{UserID: user.ID, BookID: book.ID, BorrowDate: time.Now().UTC()}).Error)
	require.NoError(t, db.Model(book).UpdateColumn("available_quantity", 4).Error)

	// Raising the total recomputes availability from the outstanding count
	err = repo.UpdateBook(book.ID, meta.input("Dune"), 10)
	require.NoError(t, err)

	updated, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.TotalQuantity)
	assert.Equal(t, 9, updated.AvailableQuantity)
}

func TestRepository_UpdateBook_PartialSuccess(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	book, err := repo.CreateBook(meta.input("Dune"), 3)
	require.NoError(t, err)

	// Two copies out with borrowers
	for i, name := range []string{"first", "second"} {
		user := &entities.User{Username: name, UserCode: "U-" + name, Fullname: name, Position: "Student", PasswordHash: "x"}
		require.NoError(t, db.Create(user).Error)
		require.NoError(t, db.Create(&entities.BorrowLog{UserID: user.ID, BookID: book.ID, BorrowDate: time.Now().UTC()}).Error)
		require.NoError(t, db.Model(book).UpdateColumn("available_quantity", 3-(i+1)).Error)
	}

	in := meta.input("Dune (Revised)")
	in.Summary = "New edition."
	err = repo.UpdateBook(book.ID, in, 1)

	var qtyErr *QuantityBelowBorrowedError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, 1, qtyErr.Requested)
	assert.Equal(t, 2, qtyErr.Borrowed)

	// Field edits persisted, quantities stayed put
	updated, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune (Revised)", updated.Title)
	assert.Equal(t, "New edition.", updated.Summary)
	assert.Equal(t, 3, updated.TotalQuantity)
	assert.Equal(t, 1, updated.AvailableQuantity)
}

func TestRepository_UpdateBook_NotFound(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "A", "B", "C")
	err := repo.UpdateBook(9999, meta.input("Ghost"), 1)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_DeleteBook(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	book, err := repo.CreateBook(meta.input("Dune"), 1)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteBook(book.ID))

	_, err = repo.GetBookByID(book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_DeleteBook_RefusedWhileBorrowed(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "Frank Herbert", "Sci-Fi", "English")
	book, err := repo.CreateBook(meta.input("Dune"), 2)
	require.NoError(t, err)

	user := &entities.User{Username: "reader", UserCode: "U-1", Fullname: "Reader", Position: "Student", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	log := &entities.BorrowLog{UserID: user.ID, BookID: book.ID, BorrowDate: time.Now().UTC()}
	require.NoError(t, db.Create(log).Error)

	err = repo.DeleteBook(book.ID)
	assert.ErrorIs(t, err, ErrBookBorrowed)

	// Once the loan is closed the delete goes through
	now := time.Now().UTC()
	require.NoError(t, db.Model(log).Update("return_date", now).Error)
	require.NoError(t, repo.DeleteBook(book.ID))
}

func TestRepository_CountBooks(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	meta := createTestMetadata(t, db, "A", "B", "C")
	count, err := repo.CountBooks()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = repo.CreateBook(meta.input("One"), 1)
	require.NoError(t, err)
	_, err = repo.CreateBook(meta.input("Two"), 1)
	require.NoError(t, err)

	count, err = repo.CountBooks()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
