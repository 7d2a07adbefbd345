// Package database persists users, accounts and transactions as
// header-prefixed CSV tables under a single data directory. Each table
// is guarded by its own mutex; writers rewrite the whole file, creates
// append.
package database

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lumenbank/backend/internal/audit"
	"github.com/lumenbank/backend/internal/models"
)

const (
	usersFile        = "users.csv"
	accountsFile     = "accounts.csv"
	transactionsFile = "transactions.csv"
)

// ErrNotFound is returned when a lookup matches no stored record.
var ErrNotFound = errors.New("record not found")

// Store is the file-backed record store. It is safe for concurrent use.
// Every successful mutation appends one line to the audit log naming
// the operation and the target key.
type Store struct {
	dataDir string
	audit   *audit.Logger

	usersMu        sync.Mutex
	accountsMu     sync.Mutex
	transactionsMu sync.Mutex
}

// New creates the data directory if needed and seeds each table file
// with its header when absent. Existing files are left untouched.
func New(dataDir string, auditLog *audit.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}
	s := &Store{dataDir: dataDir, audit: auditLog}
	for _, t := range []struct{ name, header string }{
		{usersFile, models.UserCSVHeader},
		{accountsFile, models.AccountCSVHeader},
		{transactionsFile, models.TransactionCSVHeader},
	} {
		if err := ensureFile(filepath.Join(dataDir, t.name), t.header); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DataDir returns the directory holding the table files.
func (s *Store) DataDir() string {
	return s.dataDir
}

func (s *Store) tablePath(name string) string {
	return filepath.Join(s.dataDir, name)
}

// logOp records a completed mutation in the audit log.
func (s *Store) logOp(operation, key string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(operation, key)
}

func ensureFile(path, header string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(header+"\n"), 0o644); err != nil {
		return fmt.Errorf("initialising %s: %w", path, err)
	}
	return nil
}

// readRows returns the data rows of a table with the header and blank
// lines stripped.
func readRows(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var rows []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// writeRows replaces a table file with the header and the given rows.
func writeRows(path, header string, rows []string) error {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// appendRow adds one row to the end of a table file.
func appendRow(path, row string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	if _, err := f.WriteString(row + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return f.Close()
}

// rowID returns the first CSV column, the primary key of every table.
func rowID(row string) string {
	if i := strings.IndexByte(row, ','); i >= 0 {
		return row[:i]
	}
	return row
}
