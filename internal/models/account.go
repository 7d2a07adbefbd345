package models

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

type AccountType string

const (
	AccountSavings  AccountType = "SAVINGS"
	AccountChecking AccountType = "CHECKING"
	AccountBusiness AccountType = "BUSINESS"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
	AccountPending   AccountStatus = "PENDING"
)

// Account is a single balance-bearing account owned by one user.
type Account struct {
	AccountNumber  string        `json:"account_number"`
	CustomerID     string        `json:"customer_id"`
	AccountType    AccountType   `json:"account_type"`
	Balance        float64       `json:"balance"`
	Status         AccountStatus `json:"status"`
	DailyLimit     float64       `json:"daily_limit"`
	MinimumBalance float64       `json:"minimum_balance"`
	CreatedDate    time.Time     `json:"created_date"`
	LastUpdated    time.Time     `json:"last_updated"`
}

// NewAccount builds an ACTIVE account with the per-type daily limit and
// minimum balance applied.
func NewAccount(accountNumber, customerID string, accountType AccountType, initialBalance float64) *Account {
	now := time.Now()
	a := &Account{
		AccountNumber: accountNumber,
		CustomerID:    customerID,
		AccountType:   accountType,
		Balance:       initialBalance,
		Status:        AccountActive,
		CreatedDate:   now,
		LastUpdated:   now,
	}
	switch accountType {
	case AccountSavings:
		a.DailyLimit = 500.00
		a.MinimumBalance = 100.00
	case AccountBusiness:
		a.DailyLimit = 5000.00
		a.MinimumBalance = 500.00
	default:
		a.DailyLimit = 1000.00
		a.MinimumBalance = 25.00
	}
	return a
}

// GenerateAccountNumber returns a random nine-digit account number.
// Uniqueness against existing accounts is the caller's concern.
func GenerateAccountNumber() string {
	return strconv.Itoa(rand.Intn(900000000) + 100000000)
}

// IsActive reports whether the account can take part in transactions.
func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

// CanWithdraw reports whether debiting amount would respect the account
// status, the per-operation daily limit, and the minimum balance floor.
func (a *Account) CanWithdraw(amount float64) bool {
	return amount > 0 &&
		a.IsActive() &&
		amount <= a.DailyLimit &&
		a.Balance-amount >= a.MinimumBalance
}

// Deposit credits the account. It fails on non-positive amounts and on
// accounts that are not ACTIVE.
func (a *Account) Deposit(amount float64) bool {
	if amount <= 0 || !a.IsActive() {
		return false
	}
	a.Balance += amount
	a.LastUpdated = time.Now()
	return true
}

// Withdraw debits the account if CanWithdraw allows it.
func (a *Account) Withdraw(amount float64) bool {
	if !a.CanWithdraw(amount) {
		return false
	}
	a.Balance -= amount
	a.LastUpdated = time.Now()
	return true
}

// TransferTo moves amount into target, reversing the debit if the credit
// is refused. Both mutations are in memory only.
func (a *Account) TransferTo(amount float64, target *Account) bool {
	if target == nil || !target.IsActive() {
		return false
	}
	if !a.Withdraw(amount) {
		return false
	}
	if !target.Deposit(amount) {
		a.Balance += amount
		a.LastUpdated = time.Now()
		return false
	}
	return true
}

// FormatAmount renders a monetary value with exactly two decimals,
// matching the on-disk and API representation.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// AccountCSVHeader is the first line of the accounts table.
const AccountCSVHeader = "account_number,customer_id,account_type,balance,status,daily_limit,minimum_balance,created_date,last_updated"

// CSVRow serialises the account as one line of the accounts table.
func (a *Account) CSVRow() string {
	return strings.Join([]string{
		a.AccountNumber,
		a.CustomerID,
		string(a.AccountType),
		FormatAmount(a.Balance),
		string(a.Status),
		FormatAmount(a.DailyLimit),
		FormatAmount(a.MinimumBalance),
		a.CreatedDate.Format(TimestampLayout),
		a.LastUpdated.Format(TimestampLayout),
	}, ",")
}

// AccountFromCSVRow parses one line of the accounts table.
func AccountFromCSVRow(row string) (*Account, error) {
	tokens := strings.Split(row, ",")
	if len(tokens) < 9 {
		return nil, fmt.Errorf("account row has %d columns, want 9", len(tokens))
	}

	a := &Account{
		AccountNumber: tokens[0],
		CustomerID:    tokens[1],
		AccountType:   ParseAccountType(tokens[2]),
		Status:        ParseAccountStatus(tokens[4]),
	}

	var err error
	if a.Balance, err = strconv.ParseFloat(tokens[3], 64); err != nil {
		return nil, fmt.Errorf("account %s: bad balance %q", a.AccountNumber, tokens[3])
	}
	if a.DailyLimit, err = strconv.ParseFloat(tokens[5], 64); err != nil {
		return nil, fmt.Errorf("account %s: bad daily_limit %q", a.AccountNumber, tokens[5])
	}
	if a.MinimumBalance, err = strconv.ParseFloat(tokens[6], 64); err != nil {
		return nil, fmt.Errorf("account %s: bad minimum_balance %q", a.AccountNumber, tokens[6])
	}
	if a.CreatedDate, err = time.ParseInLocation(TimestampLayout, tokens[7], time.Local); err != nil {
		return nil, fmt.Errorf("account %s: bad created_date %q", a.AccountNumber, tokens[7])
	}
	if a.LastUpdated, err = time.ParseInLocation(TimestampLayout, tokens[8], time.Local); err != nil {
		return nil, fmt.Errorf("account %s: bad last_updated %q", a.AccountNumber, tokens[8])
	}
	return a, nil
}

// ParseAccountType maps a stored type string to an AccountType. Unknown
// values fall back to CHECKING.
func ParseAccountType(s string) AccountType {
	switch AccountType(strings.ToUpper(s)) {
	case AccountSavings:
		return AccountSavings
	case AccountBusiness:
		return AccountBusiness
	default:
		return AccountChecking
	}
}

// ParseAccountStatus maps a stored status string to an AccountStatus.
// Unknown values fall back to ACTIVE.
func ParseAccountStatus(s string) AccountStatus {
	switch AccountStatus(strings.ToUpper(s)) {
	case AccountSuspended:
		return AccountSuspended
	case AccountClosed:
		return AccountClosed
	case AccountPending:
		return AccountPending
	default:
		return AccountActive
	}
}
