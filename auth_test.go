package main

import (
	"errors"
	"testing"
)

func TestAuthService_Signup(t *testing.T) {
	testDB := setupTestDB(t)
	authSvc := NewAuthService(testDB)

	tests := []struct {
		name        string
		userName    string
		email       string
		password    string
		expectError bool
	}{
		{"Valid signup", "Alice", "alice@example.com", "Aa1!aaaa", false},
		{"Short name", "A", "short@example.com", "Aa1!aaaa", true},
		{"Invalid email", "Bob", "not-an-email", "Aa1!aaaa", true},
		{"Short password", "Bob", "bob@example.com", "Aa1!a", true},
		{"No digit in password", "Bob", "bob@example.com", "Aaaa!aaaa", true},
		{"No letter in password", "Bob", "bob@example.com", "11111!11", true},
		{"No special char in password", "Bob", "bob@example.com", "Aa1aaaaa", true},
		{"Duplicate email", "Alice2", "alice@example.com", "Aa1!aaaa", true},
		{"Duplicate email different casing", "Alice3", "  ALICE@Example.COM ", "Aa1!aaaa", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := authSvc.Signup(tt.userName, tt.email, tt.password)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if user.Name != tt.userName {
					t.Errorf("Expected name %s, got %s", tt.userName, user.Name)
				}
			}
		})
	}
}

func TestAuthService_SignupDuplicateIsDomainError(t *testing.T) {
	testDB := setupTestDB(t)
	authSvc := NewAuthService(testDB)

	if _, err := authSvc.Signup("Alice", "alice@example.com", "Aa1!aaaa"); err != nil {
		t.Fatalf("Failed to create first user: %v", err)
	}

	_, err := authSvc.Signup("Mallory", "Alice@Example.com", "Aa1!aaaa")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_SignupNormalizesEmail(t *testing.T) {
	testDB := setupTestDB(t)
	authSvc := NewAuthService(testDB)

	user, err := authSvc.Signup("Alice", "  Alice@Example.COM  ", "Aa1!aaaa")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %s", user.Email)
	}
}

func TestAuthService_DistinctEmailsGetDistinctIDs(t *testing.T) {
	testDB := setupTestDB(t)
	authSvc := NewAuthService(testDB)

	seen := map[uint]bool{}
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		user, err := authSvc.Signup("User", email, "Aa1!aaaa")
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", email, err)
		}
		if seen[user.ID] {
			t.Errorf("Duplicate user id %d", user.ID)
		}
		seen[user.ID] = true
	}
}

func TestAuthService_Login(t *testing.T) {
	testDB := setupTestDB(t)
	authSvc := NewAuthService(testDB)

	if _, err := authSvc.Signup("Alice", "alice@example.com", "Aa1!aaaa"); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	tests := []struct {
		name        string
		email       string
		password    string
		expectError bool
	}{
		{"Valid login", "alice@example.com", "Aa1!aaaa", false},
		{"Valid login with casing variant", "ALICE@example.com", "Aa1!aaaa", false},
		{"Wrong password", "alice@example.com", "wrongpass", true},
		{"Non-existent user", "nobody@example.com", "Aa1!aaaa", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := authSvc.Login(tt.email, tt.password)
			if tt.expectError {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Expected ErrInvalidCredentials, got %v", err)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if user.Email != "alice@example.com" {
					t.Errorf("Expected alice@example.com, got %s", user.Email)
				}
			}
		})
	}
}

func TestAuthService_UpdatePassword(t *testing.T) {
	testDB := setupTestDB(t)
	authSvc := NewAuthService(testDB)

	user, err := authSvc.Signup("Alice", "alice@example.com", "Aa1!aaaa")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	if err := authSvc.UpdatePassword(user.ID, "Bb2@bbbb"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	if _, err := authSvc.Login("alice@example.com", "Aa1!aaaa"); err == nil {
		t.Error("Old password still accepted after update")
	}
	if _, err := authSvc.Login("alice@example.com", "Bb2@bbbb"); err != nil {
		t.Errorf("New password rejected: %v", err)
	}
}
