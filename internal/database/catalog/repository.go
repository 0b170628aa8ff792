// Package catalog provides database operations for book inventory and search.
package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookBorrowed = errors.New("book has outstanding loans")
)

// QuantityBelowBorrowedError reports a rejected total-quantity reduction.
type QuantityBelowBorrowedError struct {
	Requested int
	Borrowed  int
}

func (e *QuantityBelowBorrowedError) Error() string {
	return fmt.Sprintf("cannot reduce total quantity to %d: %d copies are currently borrowed", e.Requested, e.Borrowed)
}

// Filter narrows a catalog listing. Zero values leave the dimension open;
// non-zero filters compose with logical AND.
type Filter struct {
	Title      string // case-insensitive substring match on book title
	AuthorName string // case-insensitive substring match on author name
	CategoryID uint   // exact match
	LanguageID uint   // exact match
}

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title      string
	AuthorID   uint
	CategoryID uint
	LanguageID uint
	Year       *int
	Price      *int
	Summary    string
	ImageFile  string // empty keeps the current (or default) cover reference
}

// Repository handles book inventory database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns books matching the filter, joined with author, category
// and language, ordered by title ascending.
func (r *Repository) ListBooks(f Filter) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{}).
		Joins("JOIN authors ON authors.id = books.author_id").
		Preload("Author").Preload("Category").Preload("Language")

	if f.Title != "" {
		query = query.Where("LOWER(books.title) LIKE LOWER(?)", "%"+f.Title+"%")
	}
	if f.AuthorName != "" {
		query = query.Where("LOWER(authors.name) LIKE LOWER(?)", "%"+f.AuthorName+"%")
	}
	if f.CategoryID != 0 {
		query = query.Where("books.category_id = ?", f.CategoryID)
	}
	if f.LanguageID != 0 {
		query = query.Where("books.language_id = ?", f.LanguageID)
	}

	var books []entities.Book
	err := query.Order("books.title ASC").Find(&books).Error
	return books, err
}

// GetBookByID retrieves a book with its author, category and language.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Author").Preload("Category").Preload("Language").First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// CreateBook adds a book with quantity copies, all of them available.
// A negative quantity is coerced to 1; zero is accepted as-is.
func (r *Repository) CreateBook(in BookInput, quantity int) (*entities.Book, error) {
	if quantity < 0 {
		quantity = 1
	}

	book := &entities.Book{
		Title:             in.Title,
		AuthorID:          in.AuthorID,
		CategoryID:        in.CategoryID,
		LanguageID:        in.LanguageID,
		Year:              in.Year,
		Price:             in.Price,
		Summary:           in.Summary,
		TotalQuantity:     quantity,
		AvailableQuantity: quantity,
	}
	if in.ImageFile != "" {
		book.ImageFile = in.ImageFile
	} else {
		book.ImageFile = entities.DefaultBookCover
	}

	if err := r.db.Create(book).Error; err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return book, nil
}

// UpdateBook edits a book's fields and reconciles its quantities against the
// outstanding loan count. Field edits always apply; the quantity change is
// rejected with QuantityBelowBorrowedError when newTotal is below the number
// of copies currently borrowed, leaving the prior quantities untouched.
func (r *Repository) UpdateBook(id uint, in BookInput, newTotal int) error {
	var qtyErr *QuantityBelowBorrowedError

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		book.Title = in.Title
		book.AuthorID = in.AuthorID
		book.CategoryID = in.CategoryID
		book.LanguageID = in.LanguageID
		book.Year = in.Year
		book.Price = in.Price
		book.Summary = in.Summary
		if in.ImageFile != "" {
			book.ImageFile = in.ImageFile
		}

		var borrowed int64
		if err := tx.Model(&entities.BorrowLog{}).
			Where("book_id = ? AND return_date IS NULL", id).
			Count(&borrowed).Error; err != nil {
			return err
		}

		if newTotal < int(borrowed) {
			qtyErr = &QuantityBelowBorrowedError{Requested: newTotal, Borrowed: int(borrowed)}
		} else {
			book.TotalQuantity = newTotal
			book.AvailableQuantity = newTotal - int(borrowed)
		}

		return tx.Save(&book).Error
	})
	if err != nil {
		return err
	}
	if qtyErr != nil {
		return qtyErr
	}
	return nil
}

// DeleteBook removes a book and its returned ledger rows. It fails with
// ErrBookBorrowed while any loan for the book is outstanding.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		var outstanding int64
		if err := tx.Model(&entities.BorrowLog{}).
			Where("book_id = ? AND return_date IS NULL", id).
			Count(&outstanding).Error; err != nil {
			return err
		}
		if outstanding > 0 {
			return ErrBookBorrowed
		}

		return tx.Delete(&entities.Book{}, id).Error
	})
}

// CountBooks returns the number of books in the catalog.
func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}
