package entities

import (
	"time"
)

// DefaultBookCover is the cover filename assigned to books without an uploaded cover.
const DefaultBookCover = "default_book.jpg"

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	Books     []Book    `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	Books     []Book    `gorm:"foreignKey:CategoryID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Language struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:50" json:"name"`
	Books     []Book    `gorm:"foreignKey:LanguageID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Book struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"index;size:100" json:"title"`
	Year    *int   `json:"year,omitempty"`
	Price   *int   `json:"price,omitempty"`
	Summary string `gorm:"type:text" json:"summary,omitempty"`

	AuthorID   uint `gorm:"index;not null" json:"author_id"`
	CategoryID uint `gorm:"index;not null" json:"category_id"`
	LanguageID uint `gorm:"index;not null" json:"language_id"`

	Author   Author   `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author,omitempty"`
	Category Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Language Language `gorm:"foreignKey:LanguageID;constraint:OnDelete:RESTRICT" json:"language,omitempty"`

	ImageFile string `gorm:"size:100;default:'default_book.jpg'" json:"image_file"`

	// AvailableQuantity is a maintained projection of the borrow ledger:
	// total_quantity minus the number of outstanding loans. Every mutation
	// must keep 0 <= available_quantity <= total_quantity.
	TotalQuantity     int `gorm:"not null;default:1" json:"total_quantity"`
	AvailableQuantity int `gorm:"not null;default:1" json:"available_quantity"`

	// Ledger rows go with the book when the inventory row is removed; the
	// delete operation itself refuses to run while any loan is outstanding.
	BorrowLogs []BorrowLog `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAvailable reports whether at least one copy can be borrowed.
func (b *Book) IsAvailable() bool {
	return b.AvailableQuantity > 0
}

// BorrowLog is one row of the lending ledger. A loan is outstanding while
// ReturnDate is nil; ReturnDate is set exactly once on return.
type BorrowLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	BookID     uint       `gorm:"index;not null" json:"book_id"`
	BorrowDate time.Time  `gorm:"not null;index" json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

// Outstanding reports whether the loan has not been returned yet.
func (l *BorrowLog) Outstanding() bool {
	return l.ReturnDate == nil
}

func (Author) TableName() string {
	return "authors"
}

func (Category) TableName() string {
	return "categories"
}

func (Language) TableName() string {
	return "languages"
}

func (Book) TableName() string {
	return "books"
}

func (BorrowLog) TableName() string {
	return "borrow_logs"
}
