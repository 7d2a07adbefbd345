package database

import (
	"fmt"
	"log"

	"github.com/lumenbank/backend/internal/models"
)

// SaveAccount creates the account, or updates the stored row when an
// account with the same number already exists.
func (s *Store) SaveAccount(a *models.Account) error {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	path := s.tablePath(accountsFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if rowID(row) == a.AccountNumber {
			rows[i] = a.CSVRow()
			if err := writeRows(path, models.AccountCSVHeader, rows); err != nil {
				return err
			}
			s.logOp("ACCOUNT_SAVE", a.AccountNumber)
			return nil
		}
	}
	if err := appendRow(path, a.CSVRow()); err != nil {
		return err
	}
	s.logOp("ACCOUNT_SAVE", a.AccountNumber)
	return nil
}

// GetAccount looks an account up by number.
func (s *Store) GetAccount(accountNumber string) (*models.Account, error) {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	accounts, err := s.loadAccountsLocked()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.AccountNumber == accountNumber {
			return a, nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
}

// AccountsByCustomer returns the accounts owned by one user, in file
// order. Customers without accounts get an empty slice, not an error.
func (s *Store) AccountsByCustomer(customerID string) ([]*models.Account, error) {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	accounts, err := s.loadAccountsLocked()
	if err != nil {
		return nil, err
	}
	owned := make([]*models.Account, 0)
	for _, a := range accounts {
		if a.CustomerID == customerID {
			owned = append(owned, a)
		}
	}
	return owned, nil
}

// AllAccounts returns every stored account in file order.
func (s *Store) AllAccounts() ([]*models.Account, error) {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()
	return s.loadAccountsLocked()
}

// UpdateAccount rewrites the stored row for an existing account.
func (s *Store) UpdateAccount(a *models.Account) error {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	path := s.tablePath(accountsFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if rowID(row) == a.AccountNumber {
			rows[i] = a.CSVRow()
			if err := writeRows(path, models.AccountCSVHeader, rows); err != nil {
				return err
			}
			s.logOp("ACCOUNT_UPDATE", a.AccountNumber)
			return nil
		}
	}
	return fmt.Errorf("account %s: %w", a.AccountNumber, ErrNotFound)
}

// DeleteAccount removes the stored row for an account.
func (s *Store) DeleteAccount(accountNumber string) error {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	path := s.tablePath(accountsFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	kept := rows[:0]
	found := false
	for _, row := range rows {
		if rowID(row) == accountNumber {
			found = true
			continue
		}
		kept = append(kept, row)
	}
	if !found {
		return fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
	}
	if err := writeRows(path, models.AccountCSVHeader, kept); err != nil {
		return err
	}
	s.logOp("ACCOUNT_DELETE", accountNumber)
	return nil
}

func (s *Store) loadAccountsLocked() ([]*models.Account, error) {
	rows, err := readRows(s.tablePath(accountsFile))
	if err != nil {
		return nil, err
	}
	accounts := make([]*models.Account, 0, len(rows))
	for _, row := range rows {
		a, err := models.AccountFromCSVRow(row)
		if err != nil {
			log.Printf("[STORAGE] skipping accounts row: %v", err)
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
