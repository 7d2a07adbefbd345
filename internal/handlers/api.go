// Package handlers maps API routes onto banking service operations
// and renders the JSON response shapes the web client expects.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/lumenbank/backend/internal/models"
	"github.com/lumenbank/backend/internal/server"
	"github.com/lumenbank/backend/internal/services"
)

const apiVersion = "1.0"

type API struct {
	bank *services.BankingService
}

func NewAPI(bank *services.BankingService) *API {
	return &API{bank: bank}
}

// Mount registers every route on the router.
func (a *API) Mount(rt *server.Router) {
	rt.Handle("GET", "/api", a.Root)
	rt.Handle("GET", "/api/status", a.Status)
	rt.Handle("POST", "/api/login", a.Login)
	rt.Handle("POST", "/api/register", a.RegisterUser)
	rt.Handle("GET", "/api/accounts", a.ListAccounts)
	rt.Handle("POST", "/api/accounts/create", a.CreateAccount)
	rt.Handle("GET", "/api/balance", a.Balance)
	rt.Handle("POST", "/api/transactions/deposit", a.Deposit)
	rt.Handle("POST", "/api/transactions/withdraw", a.Withdraw)
	rt.Handle("POST", "/api/transactions/transfer", a.Transfer)
	rt.Handle("GET", "/api/transactions", a.ListTransactions)
}

// body is a flat JSON request body. All client payloads are one-level
// objects, so field access by name is enough.
type body map[string]any

func parseBody(r *server.Request) (body, error) {
	if len(r.Body) == 0 {
		return body{}, nil
	}
	var b body
	if err := json.Unmarshal(r.Body, &b); err != nil {
		return nil, err
	}
	return b, nil
}

func (b body) str(name string) string {
	s, _ := b[name].(string)
	return s
}

// number reads a field that clients send either as a JSON number or a
// numeric string.
func (b body) number(name string) (float64, bool) {
	switch v := b[name].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// errorResponse maps service errors onto the HTTP status taxonomy.
func errorResponse(err error) *server.Response {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return server.Failure(400, verr.Message)
	case errors.Is(err, services.ErrDuplicateUsername):
		return server.Failure(400, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountLocked):
		return server.Failure(401, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return server.Failure(404, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		return server.Failure(500, err.Error())
	}
}

// Root describes the service.
func (a *API) Root(r *server.Request) *server.Response {
	return server.JSON(200, map[string]any{
		"service": "Lumen Bank API",
		"version": apiVersion,
		"status":  "running",
	})
}

// Status reports store-wide totals.
func (a *API) Status(r *server.Request) *server.Response {
	status, err := a.bank.Status()
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success": true,
		"status":  status,
	})
}

// Login authenticates a user.
func (a *API) Login(r *server.Request) *server.Response {
	b, err := parseBody(r)
	if err != nil {
		return server.Failure(400, "Invalid request body")
	}
	username, password := b.str("username"), b.str("password")
	if username == "" || password == "" {
		return server.Failure(400, "username and password are required")
	}

	user, err := a.bank.Authenticate(username, password)
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success":  true,
		"message":  "Login successful",
		"username": user.Username,
		"user_id":  user.UserID,
	})
}

// RegisterUser creates a customer.
func (a *API) RegisterUser(r *server.Request) *server.Response {
	b, err := parseBody(r)
	if err != nil {
		return server.Failure(400, "Invalid request body")
	}

	user, err := a.bank.Register(services.RegisterRequest{
		Username:    b.str("username"),
		Password:    b.str("password"),
		Email:       b.str("email"),
		FullName:    b.str("full_name"),
		PhoneNumber: b.str("phone_number"),
	})
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success":  true,
		"message":  "Registration successful",
		"username": user.Username,
		"user_id":  user.UserID,
	})
}

// ListAccounts returns the accounts owned by ?username=.
func (a *API) ListAccounts(r *server.Request) *server.Response {
	username := r.QueryParam("username")
	if username == "" {
		return server.Failure(400, "username is required")
	}

	accounts, err := a.bank.UserAccounts(username)
	if err != nil {
		return errorResponse(err)
	}

	list := make([]map[string]any, 0, len(accounts))
	for _, acct := range accounts {
		list = append(list, map[string]any{
			"account_number": acct.AccountNumber,
			"account_type":   string(acct.AccountType),
			"balance":        acct.Balance,
			"status":         string(acct.Status),
		})
	}
	return server.JSON(200, map[string]any{
		"success":  true,
		"accounts": list,
	})
}

// CreateAccount opens a new account for a user.
func (a *API) CreateAccount(r *server.Request) *server.Response {
	b, err := parseBody(r)
	if err != nil {
		return server.Failure(400, "Invalid request body")
	}
	username := b.str("username")
	if username == "" {
		return server.Failure(400, "username is required")
	}

	initialBalance, _ := b.number("initial_balance")
	account, err := a.bank.CreateAccount(username, b.str("account_type"), initialBalance)
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success":        true,
		"message":        "Account created successfully",
		"account_number": account.AccountNumber,
		"account_type":   string(account.AccountType),
		"balance":        account.Balance,
	})
}

// Balance returns the balance of ?account_number=.
func (a *API) Balance(r *server.Request) *server.Response {
	accountNumber := r.QueryParam("account_number")
	if accountNumber == "" {
		return server.Failure(400, "account_number is required")
	}

	balance, err := a.bank.Balance(accountNumber)
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success":        true,
		"account_number": accountNumber,
		"balance":        balance,
	})
}

// Deposit credits an account.
func (a *API) Deposit(r *server.Request) *server.Response {
	return a.moveMoney(r, "deposit")
}

// Withdraw debits an account.
func (a *API) Withdraw(r *server.Request) *server.Response {
	return a.moveMoney(r, "withdraw")
}

func (a *API) moveMoney(r *server.Request, op string) *server.Response {
	b, err := parseBody(r)
	if err != nil {
		return server.Failure(400, "Invalid request body")
	}
	accountNumber := b.str("account_number")
	if accountNumber == "" {
		return server.Failure(400, "account_number is required")
	}
	amount, ok := b.number("amount")
	if !ok {
		return server.Failure(400, "amount is required")
	}

	var tx *models.Transaction
	if op == "deposit" {
		tx, err = a.bank.Deposit(accountNumber, amount)
	} else {
		tx, err = a.bank.Withdraw(accountNumber, amount)
	}
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success":        true,
		"message":        fmt.Sprintf("%s successful", capitalize(op)),
		"transaction_id": tx.TransactionID,
		"reference":      tx.ReferenceNumber,
		"new_balance":    tx.BalanceAfter,
	})
}

// Transfer moves money between two accounts.
func (a *API) Transfer(r *server.Request) *server.Response {
	b, err := parseBody(r)
	if err != nil {
		return server.Failure(400, "Invalid request body")
	}
	from, to := b.str("from_account"), b.str("to_account")
	if from == "" || to == "" {
		return server.Failure(400, "from_account and to_account are required")
	}
	amount, ok := b.number("amount")
	if !ok {
		return server.Failure(400, "amount is required")
	}

	tx, err := a.bank.Transfer(from, to, amount)
	if err != nil {
		return errorResponse(err)
	}
	return server.JSON(200, map[string]any{
		"success":        true,
		"message":        "Transfer successful",
		"transaction_id": tx.TransactionID,
		"reference":      tx.ReferenceNumber,
		"new_balance":    tx.BalanceAfter,
	})
}

// ListTransactions returns the history of ?account_number=.
func (a *API) ListTransactions(r *server.Request) *server.Response {
	accountNumber := r.QueryParam("account_number")
	if accountNumber == "" {
		return server.Failure(400, "account_number is required")
	}

	txs, err := a.bank.AccountTransactions(accountNumber)
	if err != nil {
		return errorResponse(err)
	}

	list := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		list = append(list, map[string]any{
			"id":          tx.TransactionID,
			"type":        string(tx.Type),
			"status":      string(tx.Status),
			"amount":      tx.Amount,
			"description": tx.Description,
			"timestamp":   tx.Timestamp.Format(models.TimestampLayout),
		})
	}
	return server.JSON(200, map[string]any{
		"success":      true,
		"transactions": list,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
