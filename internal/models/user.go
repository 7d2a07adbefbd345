package models

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wall-clock format used across all persisted records.
const TimestampLayout = "2006-01-02 15:04:05"

// MaxFailedLogins is the lockout threshold. Reaching it deactivates the user.
const MaxFailedLogins = 5

type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleAdmin    UserRole = "ADMIN"
	RoleManager  UserRole = "MANAGER"
)

// User is a registered customer or staff member of the bank.
type User struct {
	UserID              string    `json:"user_id"`
	Username            string    `json:"username"`
	PasswordHash        string    `json:"-"`
	Email               string    `json:"email"`
	FullName            string    `json:"full_name"`
	PhoneNumber         string    `json:"phone_number"`
	Role                UserRole  `json:"role"`
	IsActive            bool      `json:"is_active"`
	FailedLoginAttempts int       `json:"failed_login_attempts"`
	LastLogin           time.Time `json:"last_login"` // zero until the first successful login
	CreatedDate         time.Time `json:"created_date"`
	AccountIDs          []string  `json:"account_ids"`
}

// NewUser builds a user with a fresh USR-prefixed ID and defaults for a
// just-registered customer.
func NewUser(username, passwordHash, email, fullName, phoneNumber string, role UserRole) *User {
	return &User{
		UserID:       GenerateUserID(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		FullName:     fullName,
		PhoneNumber:  phoneNumber,
		Role:         role,
		IsActive:     true,
		CreatedDate:  time.Now(),
	}
}

// GenerateUserID returns "USR" followed by six random digits.
func GenerateUserID() string {
	return fmt.Sprintf("USR%06d", rand.Intn(900000)+100000)
}

// CanLogin reports whether the user may attempt authentication.
func (u *User) CanLogin() bool {
	return u.IsActive && u.FailedLoginAttempts < MaxFailedLogins
}

// RecordFailedLogin increments the failure counter and deactivates the
// user once the lockout threshold is reached.
func (u *User) RecordFailedLogin() {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxFailedLogins {
		u.IsActive = false
	}
}

// RecordLogin stamps a successful login and clears the failure counter.
func (u *User) RecordLogin() {
	u.FailedLoginAttempts = 0
	u.LastLogin = time.Now()
}

// AddAccountID links an account to the user. Duplicates are ignored.
func (u *User) AddAccountID(accountNumber string) {
	for _, id := range u.AccountIDs {
		if id == accountNumber {
			return
		}
	}
	u.AccountIDs = append(u.AccountIDs, accountNumber)
}

// RemoveAccountID unlinks an account from the user.
func (u *User) RemoveAccountID(accountNumber string) {
	for i, id := range u.AccountIDs {
		if id == accountNumber {
			u.AccountIDs = append(u.AccountIDs[:i], u.AccountIDs[i+1:]...)
			return
		}
	}
}

// LastLoginString renders the last login for persistence and display.
// Users who have never logged in read "Never".
func (u *User) LastLoginString() string {
	if u.LastLogin.IsZero() {
		return "Never"
	}
	return u.LastLogin.Format(TimestampLayout)
}

// UserCSVHeader is the first line of the users table.
const UserCSVHeader = "user_id,username,password_hash,email,full_name,phone_number,role,is_active,failed_login_attempts,last_login,created_date,account_ids"

// CSVRow serialises the user as one line of the users table. Linked
// account numbers are joined with semicolons in the final column.
func (u *User) CSVRow() string {
	return strings.Join([]string{
		u.UserID,
		u.Username,
		u.PasswordHash,
		u.Email,
		u.FullName,
		u.PhoneNumber,
		string(u.Role),
		boolDigit(u.IsActive),
		strconv.Itoa(u.FailedLoginAttempts),
		u.LastLoginString(),
		u.CreatedDate.Format(TimestampLayout),
		strings.Join(u.AccountIDs, ";"),
	}, ",")
}

// UserFromCSVRow parses one line of the users table. Rows written before
// account links were stored carry eleven columns and are accepted.
func UserFromCSVRow(row string) (*User, error) {
	tokens := strings.Split(row, ",")
	if len(tokens) < 11 {
		return nil, fmt.Errorf("user row has %d columns, want at least 11", len(tokens))
	}

	u := &User{
		UserID:       tokens[0],
		Username:     tokens[1],
		PasswordHash: tokens[2],
		Email:        tokens[3],
		FullName:     tokens[4],
		PhoneNumber:  tokens[5],
		Role:         ParseUserRole(tokens[6]),
	}

	active, err := strconv.ParseBool(tokens[7])
	if err != nil {
		return nil, fmt.Errorf("user %s: bad is_active %q", u.UserID, tokens[7])
	}
	u.IsActive = active

	attempts, err := strconv.Atoi(tokens[8])
	if err != nil {
		return nil, fmt.Errorf("user %s: bad failed_login_attempts %q", u.UserID, tokens[8])
	}
	u.FailedLoginAttempts = attempts

	if tokens[9] != "Never" {
		last, err := time.ParseInLocation(TimestampLayout, tokens[9], time.Local)
		if err != nil {
			return nil, fmt.Errorf("user %s: bad last_login %q", u.UserID, tokens[9])
		}
		u.LastLogin = last
	}

	created, err := time.ParseInLocation(TimestampLayout, tokens[10], time.Local)
	if err != nil {
		return nil, fmt.Errorf("user %s: bad created_date %q", u.UserID, tokens[10])
	}
	u.CreatedDate = created

	if len(tokens) >= 12 && tokens[11] != "" {
		u.AccountIDs = strings.Split(tokens[11], ";")
	}
	return u, nil
}

// boolDigit keeps the stored flag format of the legacy tables.
func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseUserRole maps a stored role string to a UserRole. Unknown values
// fall back to CUSTOMER.
func ParseUserRole(s string) UserRole {
	switch UserRole(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleCustomer
	}
}
