package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/lumenbank/backend/internal/audit"
	"github.com/lumenbank/backend/internal/config"
	"github.com/lumenbank/backend/internal/database"
	"github.com/lumenbank/backend/internal/models"
)

// MaxTransactionAmount caps any single deposit, withdrawal or transfer.
const MaxTransactionAmount = 1_000_000.00

// BankingService coordinates every banking operation against the
// record store. A single mutex serialises operations, so each one sees
// and leaves a consistent store.
type BankingService struct {
	mu        sync.Mutex
	store     *database.Store
	audit     *audit.Logger
	validator *validator.Validate
	hasher    PasswordHasher
	argon2    Argon2Hasher
}

// RegisterRequest carries the fields of a registration call.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	Password    string `json:"password" validate:"required,min=6"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

// SystemStatus is a snapshot of store-wide totals.
type SystemStatus struct {
	TotalUsers        int     `json:"total_users"`
	TotalAccounts     int     `json:"total_accounts"`
	TotalTransactions int     `json:"total_transactions"`
	TotalBalance      float64 `json:"total_balance"`
}

// NewBankingService wires the coordinator and seeds sample records the
// first time it runs against an empty users table.
func NewBankingService(store *database.Store, auditLog *audit.Logger, cfg *config.Config) (*BankingService, error) {
	s := &BankingService{
		store:     store,
		audit:     auditLog,
		validator: validator.New(),
		hasher:    NewPasswordHasher(cfg),
		argon2:    Argon2Hasher{Params: cfg.Argon2},
	}
	if err := s.seedSampleData(); err != nil {
		return nil, fmt.Errorf("seeding sample data: %w", err)
	}
	return s, nil
}

// seedSampleData loads a demo admin and customer when the store is
// brand new, mirroring the data set operators expect on first boot.
func (s *BankingService) seedSampleData() error {
	users, err := s.store.AllUsers()
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	adminHash, err := s.hasher.Hash("password")
	if err != nil {
		return err
	}
	admin := models.NewUser("admin", adminHash, "admin@lumenbank.com", "System Administrator", "+15550100000", models.RoleAdmin)
	if err := s.store.SaveUser(admin); err != nil {
		return err
	}

	customerHash, err := s.hasher.Hash("customer123")
	if err != nil {
		return err
	}
	customer := models.NewUser("johndoe", customerHash, "john.doe@email.com", "John Doe", "+15550100001", models.RoleCustomer)

	account := models.NewAccount(models.GenerateAccountNumber(), customer.UserID, models.AccountChecking, 1000.00)
	customer.AddAccountID(account.AccountNumber)

	if err := s.store.SaveUser(customer); err != nil {
		return err
	}
	if err := s.store.SaveAccount(account); err != nil {
		return err
	}

	log.Printf("[SYSTEM] Seeded sample users and demo account %s", account.AccountNumber)
	s.audit.Log("SYSTEM_SEED", "Sample users and demo account created")
	return nil
}

// verifyPassword accepts both hash formats so tables written by the
// legacy deployment keep authenticating after a hasher switch.
func (s *BankingService) verifyPassword(password, stored string) bool {
	if strings.Contains(stored, "$") {
		return s.argon2.Verify(password, stored)
	}
	return LegacyHasher{}.Verify(password, stored)
}

// Authenticate checks credentials, maintains the failed-login counter
// and stamps the last login on success.
func (s *BankingService) Authenticate(username, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[AUTH] Login attempt for username: %s", username)

	user, err := s.store.GetUserByUsername(username)
	if errors.Is(err, database.ErrNotFound) {
		// Unknown usernames fail the same way bad passwords do, so the
		// login endpoint never confirms which usernames exist.
		s.audit.LogError("USER_LOGIN", fmt.Errorf("unknown username %s", username))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.CanLogin() {
		log.Printf("[AUTH] Login rejected, user %s is locked or inactive", username)
		s.audit.LogError("USER_LOGIN", fmt.Errorf("locked user %s", username))
		return nil, ErrAccountLocked
	}

	if !s.verifyPassword(password, user.PasswordHash) {
		user.RecordFailedLogin()
		if err := s.store.UpdateUser(user); err != nil {
			log.Printf("[AUTH] Failed to persist login counter for %s: %v", username, err)
		}
		s.audit.LogError("USER_LOGIN", fmt.Errorf("bad password for %s", username))
		if !user.IsActive {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	user.RecordLogin()
	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}

	log.Printf("[AUTH] Login successful for %s (%s)", username, user.UserID)
	s.audit.Log("USER_LOGIN", "User: "+username)
	return user, nil
}

// Register creates a customer. Input rules are checked before the
// store is consulted, so a malformed request never reveals whether the
// username is taken.
func (s *BankingService) Register(req RegisterRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[AUTH] Registration request for username: %s", req.Username)

	if err := s.validator.Struct(&req); err != nil {
		return nil, asValidationError(err)
	}

	if _, err := s.store.GetUserByUsername(req.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := models.NewUser(req.Username, hash, req.Email, req.FullName, req.PhoneNumber, models.RoleCustomer)
	if err := s.store.SaveUser(user); err != nil {
		s.audit.LogError("USER_REGISTERED", err)
		return nil, err
	}

	log.Printf("[AUTH] User created successfully: %s (%s)", req.Username, user.UserID)
	s.audit.Log("USER_REGISTERED", "User: "+req.Username)
	return user, nil
}

// CreateAccount opens an account of the given type for the user and
// links it to them. Account numbers are retried on collision.
func (s *BankingService) CreateAccount(username, accountType string, initialBalance float64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if initialBalance < 0 {
		return nil, validationErrorf("initial balance cannot be negative")
	}

	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, validationErrorf("user %s is not active", username)
	}

	number, err := s.freeAccountNumber()
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(number, user.UserID, models.ParseAccountType(accountType), initialBalance)
	if err := s.store.SaveAccount(account); err != nil {
		s.audit.LogError("ACCOUNT_CREATED", err)
		return nil, err
	}

	user.AddAccountID(number)
	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}

	if initialBalance > 0 {
		tx := models.NewTransaction("", number, initialBalance, models.TxDeposit, "Initial deposit")
		tx.Complete(0, initialBalance)
		if err := s.store.SaveTransaction(tx); err != nil {
			log.Printf("[TRANSACTION] Failed to record initial deposit for %s: %v", number, err)
		}
	}

	log.Printf("[ACCOUNT] Created %s account %s for %s", account.AccountType, number, username)
	s.audit.Log("ACCOUNT_CREATED", fmt.Sprintf("Account: %s, Type: %s, Owner: %s", number, account.AccountType, username))
	return account, nil
}

// freeAccountNumber draws candidates until one is unused. The number
// space dwarfs any realistic table, so collisions only cost a retry.
func (s *BankingService) freeAccountNumber() (string, error) {
	for {
		number := models.GenerateAccountNumber()
		_, err := s.store.GetAccount(number)
		if errors.Is(err, database.ErrNotFound) {
			return number, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Deposit credits an account and appends the transaction record.
func (s *BankingService) Deposit(accountNumber string, amount float64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validAmount(amount); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(accountNumber)
	if err != nil {
		return nil, err
	}

	before := account.Balance
	if !account.Deposit(amount) {
		return nil, validationErrorf("account %s is not active", accountNumber)
	}

	tx := models.NewTransaction("", accountNumber, amount, models.TxDeposit, "Deposit")
	if err := s.store.UpdateAccount(account); err != nil {
		s.recordFailed(tx, before)
		return nil, err
	}

	tx.Complete(before, account.Balance)
	if err := s.store.SaveTransaction(tx); err != nil {
		log.Printf("[TRANSACTION] Failed to record deposit %s: %v", tx.TransactionID, err)
	}

	log.Printf("[TRANSACTION] Deposit %s to %s, new balance %s", models.FormatAmount(amount), accountNumber, models.FormatAmount(account.Balance))
	s.audit.Log("DEPOSIT", fmt.Sprintf("Account: %s, Amount: %s", accountNumber, models.FormatAmount(amount)))
	return tx, nil
}

// Withdraw debits an account, enforcing status, the per-operation
// daily limit and the minimum balance floor.
func (s *BankingService) Withdraw(accountNumber string, amount float64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validAmount(amount); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(accountNumber)
	if err != nil {
		return nil, err
	}

	if reason := withdrawalRefusal(account, amount); reason != nil {
		return nil, reason
	}

	before := account.Balance
	tx := models.NewTransaction(accountNumber, "", amount, models.TxWithdrawal, "Withdrawal")
	account.Withdraw(amount)
	if err := s.store.UpdateAccount(account); err != nil {
		s.recordFailed(tx, before)
		return nil, err
	}

	tx.Complete(before, account.Balance)
	if err := s.store.SaveTransaction(tx); err != nil {
		log.Printf("[TRANSACTION] Failed to record withdrawal %s: %v", tx.TransactionID, err)
	}

	log.Printf("[TRANSACTION] Withdrawal %s from %s, new balance %s", models.FormatAmount(amount), accountNumber, models.FormatAmount(account.Balance))
	s.audit.Log("WITHDRAWAL", fmt.Sprintf("Account: %s, Amount: %s", accountNumber, models.FormatAmount(amount)))
	return tx, nil
}

// Transfer moves money between two accounts. The debit and credit are
// applied in memory first; the account rows are then written one at a
// time.
func (s *BankingService) Transfer(fromAccount, toAccount string, amount float64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validAmount(amount); err != nil {
		return nil, err
	}
	if fromAccount == toAccount {
		return nil, validationErrorf("cannot transfer to the same account")
	}

	src, err := s.store.GetAccount(fromAccount)
	if err != nil {
		return nil, err
	}
	dst, err := s.store.GetAccount(toAccount)
	if err != nil {
		return nil, err
	}

	if !dst.IsActive() {
		return nil, validationErrorf("destination account %s is not active", toAccount)
	}
	if reason := withdrawalRefusal(src, amount); reason != nil {
		return nil, reason
	}

	before := src.Balance
	tx := models.NewTransaction(fromAccount, toAccount, amount, models.TxTransfer, fmt.Sprintf("Transfer to %s", toAccount))
	if !src.TransferTo(amount, dst) {
		return nil, validationErrorf("transfer refused")
	}

	// The two account writes are independent. A failure between them
	// leaves the debit persisted; the FAILED ledger row is the
	// reconciliation trail.
	if err := s.store.UpdateAccount(src); err != nil {
		s.recordFailed(tx, before)
		return nil, err
	}
	if err := s.store.UpdateAccount(dst); err != nil {
		s.recordFailed(tx, before)
		return nil, err
	}

	tx.Complete(before, src.Balance)
	if err := s.store.SaveTransaction(tx); err != nil {
		log.Printf("[TRANSACTION] Failed to record transfer %s: %v", tx.TransactionID, err)
	}

	log.Printf("[TRANSACTION] Transfer %s from %s to %s", models.FormatAmount(amount), fromAccount, toAccount)
	s.audit.Log("TRANSFER", fmt.Sprintf("From: %s, To: %s, Amount: %s", fromAccount, toAccount, models.FormatAmount(amount)))
	return tx, nil
}

// recordFailed persists a FAILED transaction best effort. Only persist
// failures reach it; refused operations leave no ledger row.
func (s *BankingService) recordFailed(tx *models.Transaction, balance float64) {
	tx.BalanceBefore = balance
	tx.BalanceAfter = balance
	tx.Fail()
	if err := s.store.SaveTransaction(tx); err != nil {
		log.Printf("[TRANSACTION] Failed to record failed transaction %s: %v", tx.TransactionID, err)
	}
	s.audit.LogError(string(tx.Type), fmt.Errorf("transaction %s failed", tx.TransactionID))
}

func validAmount(amount float64) error {
	if amount <= 0 {
		return validationErrorf("amount must be positive")
	}
	if amount > MaxTransactionAmount {
		return validationErrorf("amount exceeds the %s limit", models.FormatAmount(MaxTransactionAmount))
	}
	return nil
}

// withdrawalRefusal names the first rule that blocks debiting amount,
// or nil when the debit may proceed.
func withdrawalRefusal(a *models.Account, amount float64) error {
	switch {
	case !a.IsActive():
		return validationErrorf("account %s is not active", a.AccountNumber)
	case amount > a.DailyLimit:
		return validationErrorf("amount exceeds the daily limit of %s", models.FormatAmount(a.DailyLimit))
	case a.Balance-amount < a.MinimumBalance:
		return validationErrorf("insufficient funds: balance must stay above %s", models.FormatAmount(a.MinimumBalance))
	default:
		return nil
	}
}

// UserByUsername returns the stored user.
func (s *BankingService) UserByUsername(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetUserByUsername(username)
}

// UserAccounts lists the accounts owned by the user.
func (s *BankingService) UserAccounts(username string) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	return s.store.AccountsByCustomer(user.UserID)
}

// AccountInfo returns the stored account.
func (s *BankingService) AccountInfo(accountNumber string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetAccount(accountNumber)
}

// Balance returns the current balance of an account.
func (s *BankingService) Balance(accountNumber string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.store.GetAccount(accountNumber)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// AccountTransactions lists every transaction touching the account.
func (s *BankingService) AccountTransactions(accountNumber string) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetAccount(accountNumber); err != nil {
		return nil, err
	}
	return s.store.TransactionsByAccount(accountNumber)
}

// UserTransactions lists the transactions across all of the user's
// accounts, deduplicated by transaction ID.
func (s *BankingService) UserTransactions(username string) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.AccountsByCustomer(user.UserID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	merged := make([]*models.Transaction, 0)
	for _, a := range accounts {
		txs, err := s.store.TransactionsByAccount(a.AccountNumber)
		if err != nil {
			return nil, err
		}
		for _, t := range txs {
			if seen[t.TransactionID] {
				continue
			}
			seen[t.TransactionID] = true
			merged = append(merged, t)
		}
	}
	return merged, nil
}

// SuspendAccount blocks an account from transacting.
func (s *BankingService) SuspendAccount(accountNumber string) error {
	return s.setAccountStatus(accountNumber, models.AccountSuspended, "ACCOUNT_SUSPENDED")
}

// ReactivateAccount returns a suspended account to service. Closed
// accounts stay closed.
func (s *BankingService) ReactivateAccount(accountNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.store.GetAccount(accountNumber)
	if err != nil {
		return err
	}
	if account.Status == models.AccountClosed {
		return validationErrorf("account %s is closed and cannot be reactivated", accountNumber)
	}
	account.Status = models.AccountActive
	if err := s.store.UpdateAccount(account); err != nil {
		return err
	}
	s.audit.Log("ACCOUNT_REACTIVATED", "Account: "+accountNumber)
	return nil
}

// CloseAccount closes an account. The balance must be zero so no funds
// are stranded.
func (s *BankingService) CloseAccount(accountNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.store.GetAccount(accountNumber)
	if err != nil {
		return err
	}
	if account.Balance != 0 {
		return validationErrorf("account %s still holds %s, withdraw or transfer before closing", accountNumber, models.FormatAmount(account.Balance))
	}
	account.Status = models.AccountClosed
	if err := s.store.UpdateAccount(account); err != nil {
		return err
	}
	s.audit.Log("ACCOUNT_CLOSED", "Account: "+accountNumber)
	return nil
}

func (s *BankingService) setAccountStatus(accountNumber string, status models.AccountStatus, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.store.GetAccount(accountNumber)
	if err != nil {
		return err
	}
	account.Status = status
	if err := s.store.UpdateAccount(account); err != nil {
		return err
	}
	s.audit.Log(operation, "Account: "+accountNumber)
	return nil
}

// DeleteUser removes a user whose accounts are all closed.
func (s *BankingService) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return err
	}
	accounts, err := s.store.AccountsByCustomer(user.UserID)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.Status != models.AccountClosed {
			return validationErrorf("user %s still has open account %s", username, a.AccountNumber)
		}
	}
	if err := s.store.DeleteUser(user.UserID); err != nil {
		return err
	}
	s.audit.Log("USER_DELETED", "User: "+username)
	return nil
}

// Status reports store-wide totals.
func (s *BankingService) Status() (*SystemStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.AllUsers()
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.AllAccounts()
	if err != nil {
		return nil, err
	}
	txs, err := s.store.AllTransactions()
	if err != nil {
		return nil, err
	}

	status := &SystemStatus{
		TotalUsers:        len(users),
		TotalAccounts:     len(accounts),
		TotalTransactions: len(txs),
	}
	for _, a := range accounts {
		status.TotalBalance += a.Balance
	}
	return status, nil
}
