package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
)

type seedAdmin struct {
	Username  string
	Fullname  string
	UserCode  string
	BirthDate time.Time
	Position  string
}

var (
	seedAdmins = []seedAdmin{
		{Username: "Admin1", Fullname: "Admin One", UserCode: "A001", BirthDate: time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC), Position: "Librarian"},
		{Username: "Admin2", Fullname: "Admin Two", UserCode: "A002", BirthDate: time.Date(2005, 2, 2, 0, 0, 0, 0, time.UTC), Position: "Librarian"},
		{Username: "Admin3", Fullname: "Admin Three", UserCode: "A003", BirthDate: time.Date(2005, 3, 3, 0, 0, 0, 0, time.UTC), Position: "Librarian"},
	}

	seedAuthors    = []string{"Nguyen Nhat Anh", "J.K. Rowling", "Stephen King"}
	seedCategories = []string{"Novel", "Detective", "Horror"}
	seedLanguages  = []string{"Vietnamese", "English"}
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the library database, migrates the schema
// and inserts the sample rows. Seeding is idempotent per named entity.
// adminPassword is the shared password for the seeded administrator accounts.
func NewDatabase(dbPath, adminPassword string, bcryptCost int) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Author{},
		&entities.Category{},
		&entities.Language{},
		&entities.Book{},
		&entities.BorrowLog{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedSampleData(adminPassword, bcryptCost); err != nil {
		return nil, fmt.Errorf("failed to seed sample data: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedSampleData(adminPassword string, bcryptCost int) error {
	for _, admin := range seedAdmins {
		var existing entities.User
		result := d.DB.Where("username = ?", admin.Username).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			hash, err := auth.HashPassword(adminPassword, bcryptCost)
			if err != nil {
				return fmt.Errorf("failed to hash admin password: %w", err)
			}
			birth := admin.BirthDate
			user := entities.User{
				Username:     admin.Username,
				Fullname:     admin.Fullname,
				UserCode:     admin.UserCode,
				BirthDate:    &birth,
				Position:     admin.Position,
				PasswordHash: hash,
				Role:         entities.UserRoleAdmin,
				Avatar:       entities.DefaultAvatar,
			}
			if err := d.DB.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create admin %s: %w", admin.Username, err)
			}
			log.Printf("Created administrator account: %s", admin.Username)
		} else if result.Error != nil {
			return result.Error
		}
	}

	for _, name := range seedAuthors {
		var existing entities.Author
		if err := d.DB.Where("name = ?", name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&entities.Author{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to create author %s: %w", name, err)
			}
		}
	}
	for _, name := range seedCategories {
		var existing entities.Category
		if err := d.DB.Where("name = ?", name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&entities.Category{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", name, err)
			}
		}
	}
	for _, name := range seedLanguages {
		var existing entities.Language
		if err := d.DB.Where("name = ?", name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&entities.Language{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to create language %s: %w", name, err)
			}
		}
	}

	return nil
}
