package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("an account with this email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// FieldError reports a validation failure on a single signup field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// normalizeEmail produces the uniqueness and lookup key for a user.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) *FieldError {
	if len(password) < 8 {
		return &FieldError{"password", "must be at least 8 characters"}
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter {
		return &FieldError{"password", "must contain at least one letter"}
	}
	if !hasDigit {
		return &FieldError{"password", "must contain at least one number"}
	}
	if !hasSpecial {
		return &FieldError{"password", "must contain at least one special character"}
	}
	return nil
}

// Authentication service
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(database *gorm.DB) *AuthService {
	return &AuthService{db: database}
}

func (s *AuthService) Signup(name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, &FieldError{"name", "must be at least 2 characters"}
	}

	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, &FieldError{"email", "must be a valid email address"}
	}

	if ferr := validatePassword(password); ferr != nil {
		return nil, ferr
	}

	// Optimistic pre-check; the unique index on email is the real guard
	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.db.Create(user).Error; err != nil {
		// A concurrent signup can win the race between the pre-check and
		// this insert; the constraint violation gets the same domain error.
		return nil, ErrEmailTaken
	}

	return user, nil
}

func (s *AuthService) Login(email, password string) (*User, error) {
	var user User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *AuthService) UserByID(id uint) (*User, error) {
	var user User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) UserByEmail(email string) (*User, error) {
	var user User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) UpdatePassword(userID uint, newPassword string) error {
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.Model(&User{}).Where("id = ?", userID).
		Update("password_hash", hashed).Error
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
