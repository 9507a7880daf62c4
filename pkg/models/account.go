package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

func (r Role) Valid() bool {
	switch r {
	case RolePassenger, RoleDriver:
		return true
	}
	return false
}

type Account struct {
	ID           int64           `json:"id"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name"`
	PasswordHash []byte          `json:"-"`
	Role         Role            `json:"role"`
	Available    bool            `json:"available"`
	Balance      decimal.Decimal `json:"balance"`
	TelegramID   *int64          `json:"telegram_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (a *Account) IsPassenger() bool { return a != nil && a.Role == RolePassenger }

func (a *Account) IsDriver() bool { return a != nil && a.Role == RoleDriver }

// CanTakeWork reports whether a driver may list, accept or reject requests.
func (a *Account) CanTakeWork() bool { return a.IsDriver() && a.Available }

type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}
