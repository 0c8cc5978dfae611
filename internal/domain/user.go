package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxUsernameLength mirrors the width of the users.username column.
const MaxUsernameLength = 20

// User represents an identity that can authenticate and own posts.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeUsername trims the username and checks its length.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", fmt.Errorf("%w: username must be at most %d characters", ErrInvalidInput, MaxUsernameLength)
	}
	return username, nil
}
