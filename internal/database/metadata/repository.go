// Package metadata provides database operations for the lookup entities a
// book references: authors, categories and languages.
//
// All three share the same contract: creating an existing name is a silent
// no-op, deleting fails with ErrInUse while any book references the row, and
// renaming overwrites unconditionally.
package metadata

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrNotFound = errors.New("metadata entry not found")
	ErrInUse    = errors.New("metadata entry is referenced by existing books")
)

// Repository handles author, category and language database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new metadata repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// isFKViolation recognizes the SQLite foreign key constraint error so a
// blocked delete surfaces as ErrInUse instead of a raw driver error.
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// --- Authors ---

// CreateAuthor inserts an author unless the exact name already exists, in
// which case it silently returns the existing row.
func (r *Repository) CreateAuthor(name string) (*entities.Author, error) {
	var existing entities.Author
	err := r.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	author := &entities.Author{Name: name}
	if err := r.db.Create(author).Error; err != nil {
		return nil, err
	}
	return author, nil
}

// GetAuthorByID retrieves an author by id.
func (r *Repository) GetAuthorByID(id uint) (*entities.Author, error) {
	var author entities.Author
	if err := r.db.First(&author, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &author, nil
}

// ListAuthors returns all authors ordered by name.
func (r *Repository) ListAuthors() ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.Order("name ASC").Find(&authors).Error
	return authors, err
}

// RenameAuthor overwrites the author's name. The new name is not re-checked
// for uniqueness; a collision surfaces as a constraint error.
func (r *Repository) RenameAuthor(id uint, name string) error {
	result := r.db.Model(&entities.Author{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAuthor removes an author. Fails with ErrInUse while any book
// references it.
func (r *Repository) DeleteAuthor(id uint) error {
	var refs int64
	if err := r.db.Model(&entities.Book{}).Where("author_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}

	result := r.db.Delete(&entities.Author{}, id)
	if isFKViolation(result.Error) {
		return ErrInUse
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Categories ---

// CreateCategory inserts a category unless the exact name already exists.
func (r *Repository) CreateCategory(name string) (*entities.Category, error) {
	var existing entities.Category
	err := r.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := &entities.Category{Name: name}
	if err := r.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategoryByID retrieves a category by id.
func (r *Repository) GetCategoryByID(id uint) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

// RenameCategory overwrites the category's name without a uniqueness re-check.
func (r *Repository) RenameCategory(id uint, name string) error {
	result := r.db.Model(&entities.Category{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category. Fails with ErrInUse while referenced.
func (r *Repository) DeleteCategory(id uint) error {
	var refs int64
	if err := r.db.Model(&entities.Book{}).Where("category_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}

	result := r.db.Delete(&entities.Category{}, id)
	if isFKViolation(result.Error) {
		return ErrInUse
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Languages ---

// CreateLanguage inserts a language unless the exact name already exists.
func (r *Repository) CreateLanguage(name string) (*entities.Language, error) {
	var existing entities.Language
	err := r.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	language := &entities.Language{Name: name}
	if err := r.db.Create(language).Error; err != nil {
		return nil, err
	}
	return language, nil
}

// GetLanguageByID retrieves a language by id.
func (r *Repository) GetLanguageByID(id uint) (*entities.Language, error) {
	var language entities.Language
	if err := r.db.First(&language, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &language, nil
}

// ListLanguages returns all languages ordered by name.
func (r *Repository) ListLanguages() ([]entities.Language, error) {
	var languages []entities.Language
	err := r.db.Order("name ASC").Find(&languages).Error
	return languages, err
}

// RenameLanguage overwrites the language's name without a uniqueness re-check.
func (r *Repository) RenameLanguage(id uint, name string) error {
	result := r.db.Model(&entities.Language{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLanguage removes a language. Fails with ErrInUse while referenced.
func (r *Repository) DeleteLanguage(id uint) error {
	var refs int64
	if err := r.db.Model(&entities.Book{}).Where("language_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}

	result := r.db.Delete(&entities.Language{}, id)
	if isFKViolation(result.Error) {
		return ErrInUse
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
