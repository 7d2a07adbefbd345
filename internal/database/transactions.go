package database

import (
	"fmt"
	"log"
	"time"

	"github.com/lumenbank/backend/internal/models"
)

// SaveTransaction appends the transaction to the ledger file. An
// existing row with the same ID is updated instead, which covers the
// status-correction path.
func (s *Store) SaveTransaction(t *models.Transaction) error {
	s.transactionsMu.Lock()
	defer s.transactionsMu.Unlock()

	path := s.tablePath(transactionsFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if rowID(row) == t.TransactionID {
			rows[i] = t.CSVRow()
			if err := writeRows(path, models.TransactionCSVHeader, rows); err != nil {
				return err
			}
			s.logOp("TRANSACTION_SAVE", t.TransactionID)
			return nil
		}
	}
	if err := appendRow(path, t.CSVRow()); err != nil {
		return err
	}
	s.logOp("TRANSACTION_SAVE", t.TransactionID)
	return nil
}

// GetTransaction looks a transaction up by ID.
func (s *Store) GetTransaction(transactionID string) (*models.Transaction, error) {
	s.transactionsMu.Lock()
	defer s.transactionsMu.Unlock()

	txs, err := s.loadTransactionsLocked()
	if err != nil {
		return nil, err
	}
	for _, t := range txs {
		if t.TransactionID == transactionID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
}

// TransactionsByAccount returns every transaction that touches the
// account, in file order. Accounts without history get an empty slice.
func (s *Store) TransactionsByAccount(accountNumber string) ([]*models.Transaction, error) {
	s.transactionsMu.Lock()
	defer s.transactionsMu.Unlock()

	txs, err := s.loadTransactionsLocked()
	if err != nil {
		return nil, err
	}
	matched := make([]*models.Transaction, 0)
	for _, t := range txs {
		if t.Involves(accountNumber) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// TransactionsByDateRange returns ledger rows stamped within the
// inclusive [from, to] window, in file order.
func (s *Store) TransactionsByDateRange(from, to time.Time) ([]*models.Transaction, error) {
	s.transactionsMu.Lock()
	defer s.transactionsMu.Unlock()

	txs, err := s.loadTransactionsLocked()
	if err != nil {
		return nil, err
	}
	matched := make([]*models.Transaction, 0)
	for _, t := range txs {
		if t.Timestamp.Before(from) || t.Timestamp.After(to) {
			continue
		}
		matched = append(matched, t)
	}
	return matched, nil
}

// AllTransactions returns the full ledger in file order.
func (s *Store) AllTransactions() ([]*models.Transaction, error) {
	s.transactionsMu.Lock()
	defer s.transactionsMu.Unlock()
	return s.loadTransactionsLocked()
}

func (s *Store) loadTransactionsLocked() ([]*models.Transaction, error) {
	rows, err := readRows(s.tablePath(transactionsFile))
	if err != nil {
		return nil, err
	}
	txs := make([]*models.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := models.TransactionFromCSVRow(row)
		if err != nil {
			log.Printf("[STORAGE] skipping transactions row: %v", err)
			continue
		}
		txs = append(txs, t)
	}
	return txs, nil
}
