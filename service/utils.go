package service

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ridematch/pkg/apperr"
	"ridematch/pkg/models"
)

const (
	MinNameLen = 1
	MaxNameLen = 100

	MinEmailLen = 5
	MaxEmailLen = 100

	MinPasswordLen = 5
	MaxPasswordLen = 50
)

var hashCost = bcrypt.DefaultCost

func validateRegistration(in models.Registration) error {
	if err := validateName(in.FullName); err != nil {
		return apperr.InvalidInput("invalid name: %v", err)
	}
	if err := validateEmail(in.Email); err != nil {
		return apperr.InvalidInput("invalid email: %v", err)
	}
	if err := validatePassword(in.Password); err != nil {
		return apperr.InvalidInput("invalid password: %v", err)
	}
	if !in.Role.Valid() {
		return apperr.InvalidInput("unknown role %q", in.Role)
	}
	return nil
}

func validateName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < MinNameLen || n > MaxNameLen {
		return fmt.Errorf("must be in range [%d, %d]", MinNameLen, MaxNameLen)
	}
	return nil
}

func validateEmail(email string) error {
	n := len(email)
	if n < MinEmailLen || n > MaxEmailLen {
		return fmt.Errorf("must be in range [%d, %d]", MinEmailLen, MaxEmailLen)
	}
	if strings.Count(email, "@") != 1 {
		return fmt.Errorf("must contain exactly one @: %s", email)
	}
	return nil
}

func validatePassword(password string) error {
	n := len(password)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("must be in range [%d, %d]", MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), hashCost)
}

func checkPassword(hashed []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hashed, []byte(password)) == nil
}
