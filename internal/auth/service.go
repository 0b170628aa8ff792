package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username is already taken")
	ErrUserCodeTaken     = errors.New("user code is already in use")
	ErrUsernameInvalid   = errors.New("username must be 4-80 characters")
	ErrUserCodeInvalid   = errors.New("user code must be 3-20 characters")
	ErrFullnameInvalid   = errors.New("full name must be 2-100 characters")
	ErrPositionRequired  = errors.New("position is required")
	ErrBirthDateRequired = errors.New("birth date is required")
)

// RegisterInput carries the registration form fields. Every registration
// creates a member; the admin role is only ever assigned by seed data.
type RegisterInput struct {
	UserCode  string
	Fullname  string
	Username  string
	BirthDate *time.Time
	Position  string
	Password  string
}

// ProfileInput carries the profile update fields. Avatar is the stored
// filename of a freshly uploaded picture; empty keeps the current one.
type ProfileInput struct {
	Fullname  string
	Username  string
	BirthDate *time.Time
	Position  string
	Avatar    string
}

// Service handles authentication and user management.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

func validateRegisterInput(in RegisterInput) error {
	if len(in.UserCode) < 3 || len(in.UserCode) > 20 {
		return ErrUserCodeInvalid
	}
	if len(in.Fullname) < 2 || len(in.Fullname) > 100 {
		return ErrFullnameInvalid
	}
	if len(in.Username) < 4 || len(in.Username) > 80 {
		return ErrUsernameInvalid
	}
	if in.Position == "" {
		return ErrPositionRequired
	}
	if in.BirthDate == nil {
		return ErrBirthDateRequired
	}
	return nil
}

// Register creates a new member account.
func (s *Service) Register(in RegisterInput) (*entities.User, error) {
	if err := validateRegisterInput(in); err != nil {
		return nil, err
	}

	var existing entities.User
	err := s.db.Where("username = ?", in.Username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}

	err = s.db.Where("user_code = ?", in.UserCode).First(&existing).Error
	if err == nil {
		return nil, ErrUserCodeTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user code: %w", err)
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		UserCode:     in.UserCode,
		Fullname:     in.Fullname,
		Username:     in.Username,
		BirthDate:    in.BirthDate,
		Position:     in.Position,
		PasswordHash: passwordHash,
		Role:         entities.UserRoleMember,
		Avatar:       entities.DefaultAvatar,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate validates credentials and returns the user.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile persists the editable profile fields of a user. A username
// change is rejected when another user already holds the new name.
func (s *Service) UpdateProfile(userID uint, in ProfileInput) (*entities.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if len(in.Fullname) < 2 {
		return nil, ErrFullnameInvalid
	}
	if len(in.Username) < 4 {
		return nil, ErrUsernameInvalid
	}
	if in.BirthDate == nil {
		return nil, ErrBirthDateRequired
	}
	if in.Position == "" {
		return nil, ErrPositionRequired
	}

	if in.Username != user.Username {
		var other entities.User
		err := s.db.Where("username = ?", in.Username).First(&other).Error
		if err == nil {
			return nil, ErrUsernameTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check existing username: %w", err)
		}
	}

	user.Fullname = in.Fullname
	user.Username = in.Username
	user.BirthDate = in.BirthDate
	user.Position = in.Position
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword updates a user's password after verifying the old one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.Model(user).Update("password_hash", newHash).Error
}
