// Package loans maintains the borrow ledger and the availability counter it
// projects onto books.
//
// The counter is only ever moved inside the same transaction that writes the
// ledger row, so for every book
//
//	available_quantity == total_quantity - count(outstanding loans)
//
// holds after each operation. The decrement is guarded by
// "available_quantity > 0" so two borrows racing for the last copy serialize
// on the database write lock and exactly one of them wins.
package loans

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrLogNotFound     = errors.New("borrow log not found")
	ErrOutOfStock      = errors.New("no copies available")
	ErrAlreadyBorrowed = errors.New("user already has an outstanding loan for this book")
)

// AlreadyProcessed is reported when a return hits a loan whose return date is
// already set. It is informational: the ledger and the counter are unchanged.
var AlreadyProcessed = errors.New("loan was already processed")

// Repository handles borrow ledger database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Borrow creates an outstanding loan for (userID, bookID) and decrements the
// book's available counter, both inside one transaction.
func (r *Repository) Borrow(userID, bookID uint) (*entities.BorrowLog, error) {
	var entry entities.BorrowLog

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.AvailableQuantity <= 0 {
			return ErrOutOfStock
		}

		var outstanding int64
		if err := tx.Model(&entities.BorrowLog{}).
			Where("user_id = ? AND book_id = ? AND return_date IS NULL", userID, bookID).
			Count(&outstanding).Error; err != nil {
			return err
		}
		if outstanding > 0 {
			return ErrAlreadyBorrowed
		}

		// Guarded decrement: a concurrent borrow of the last copy leaves
		// RowsAffected at zero for the loser.
		result := tx.Model(&entities.Book{}).
			Where("id = ? AND available_quantity > 0", bookID).
			UpdateColumn("available_quantity", gorm.Expr("available_quantity - 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOutOfStock
		}

		entry = entities.BorrowLog{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: time.Now().UTC(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Return closes the loan and increments the book's available counter, both
// inside one transaction. Returning a loan that is already closed reports
// AlreadyProcessed and changes nothing.
func (r *Repository) Return(logID uint) (*entities.BorrowLog, error) {
	var entry entities.BorrowLog

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, logID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLogNotFound
			}
			return err
		}

		now := time.Now().UTC()
		result := tx.Model(&entities.BorrowLog{}).
			Where("id = ? AND return_date IS NULL", logID).
			Update("return_date", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return AlreadyProcessed
		}
		entry.ReturnDate = &now

		return tx.Model(&entities.Book{}).
			Where("id = ?", entry.BookID).
			UpdateColumn("available_quantity", gorm.Expr("available_quantity + 1")).Error
	})
	if err != nil {
		if errors.Is(err, AlreadyProcessed) {
			return &entry, AlreadyProcessed
		}
		return nil, err
	}
	return &entry, nil
}

// GetByID retrieves a single ledger row with its user and book.
func (r *Repository) GetByID(id uint) (*entities.BorrowLog, error) {
	var entry entities.BorrowLog
	err := r.db.Preload("User").Preload("Book").First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ListAll returns the full ledger, newest borrows first.
func (r *Repository) ListAll() ([]entities.BorrowLog, error) {
	var logs []entities.BorrowLog
	err := r.db.Preload("User").Preload("Book").
		Order("borrow_date DESC").Find(&logs).Error
	return logs, err
}

// ListForUser returns one user's ledger rows, newest borrows first.
func (r *Repository) ListForUser(userID uint) ([]entities.BorrowLog, error) {
	var logs []entities.BorrowLog
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("borrow_date DESC").Find(&logs).Error
	return logs, err
}

// CountOutstandingForBook returns the number of open loans for a book.
func (r *Repository) CountOutstandingForBook(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BorrowLog{}).
		Where("book_id = ? AND return_date IS NULL", bookID).
		Count(&count).Error
	return count, err
}
