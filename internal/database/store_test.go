package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbank/backend/internal/audit"
	"github.com/lumenbank/backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), audit.New(t.TempDir()))
	require.NoError(t, err)
	return s
}

func TestNewSeedsTableHeaders(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, audit.New(t.TempDir()))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"users.csv":        models.UserCSVHeader,
		"accounts.csv":     models.AccountCSVHeader,
		"transactions.csv": models.TransactionCSVHeader,
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, header+"\n", string(data))
	}
}

func TestNewKeepsExistingData(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, audit.New(t.TempDir()))
	require.NoError(t, err)

	u := models.NewUser("survivor", "h", "s@example.com", "Survivor", "", models.RoleCustomer)
	require.NoError(t, s.SaveUser(u))

	reopened, err := New(dir, audit.New(t.TempDir()))
	require.NoError(t, err)
	got, err := reopened.GetUser(u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "survivor", got.Username)
}

func TestSaveUserCreateThenUpdate(t *testing.T) {
	s := newTestStore(t)

	u := models.NewUser("alice", "hash1", "alice@example.com", "Alice A", "", models.RoleCustomer)
	require.NoError(t, s.SaveUser(u))

	u.Email = "alice@lumenbank.test"
	require.NoError(t, s.SaveUser(u))

	users, err := s.AllUsers()
	require.NoError(t, err)
	require.Len(t, users, 1, "second save must update, not duplicate")
	assert.Equal(t, "alice@lumenbank.test", users[0].Email)
}

func TestUserLookups(t *testing.T) {
	s := newTestStore(t)
	u := models.NewUser("bob", "h", "bob@example.com", "Bob B", "", models.RoleAdmin)
	require.NoError(t, s.SaveUser(u))

	t.Run("by id", func(t *testing.T) {
		got, err := s.GetUser(u.UserID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("by username", func(t *testing.T) {
		got, err := s.GetUserByUsername("bob")
		require.NoError(t, err)
		assert.Equal(t, u.UserID, got.UserID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.GetUser("USR000000")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetUserByUsername("nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateAndDeleteUser(t *testing.T) {
	s := newTestStore(t)
	u := models.NewUser("carol", "h", "carol@example.com", "Carol C", "", models.RoleCustomer)
	require.NoError(t, s.SaveUser(u))

	u.RecordFailedLogin()
	require.NoError(t, s.UpdateUser(u))
	got, err := s.GetUser(u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailedLoginAttempts)

	require.NoError(t, s.DeleteUser(u.UserID))
	_, err = s.GetUser(u.UserID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.UpdateUser(u), ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(u.UserID), ErrNotFound)
}

func TestMutationsAppendAuditLines(t *testing.T) {
	logDir := t.TempDir()
	s, err := New(t.TempDir(), audit.New(logDir))
	require.NoError(t, err)

	u := models.NewUser("tracked", "h", "t@example.com", "Tracked T", "", models.RoleCustomer)
	require.NoError(t, s.SaveUser(u))
	u.RecordFailedLogin()
	require.NoError(t, s.UpdateUser(u))

	a := models.NewAccount("100000009", u.UserID, models.AccountChecking, 50)
	require.NoError(t, s.SaveAccount(a))

	tx := models.NewTransaction("", a.AccountNumber, 50, models.TxDeposit, "Deposit")
	require.NoError(t, s.SaveTransaction(tx))

	require.NoError(t, s.DeleteAccount(a.AccountNumber))
	require.NoError(t, s.DeleteUser(u.UserID))

	data, err := os.ReadFile(filepath.Join(logDir, "system.log"))
	require.NoError(t, err)
	log := string(data)

	assert.Contains(t, log, "USER_SAVE - "+u.UserID)
	assert.Contains(t, log, "USER_UPDATE - "+u.UserID)
	assert.Contains(t, log, "ACCOUNT_SAVE - "+a.AccountNumber)
	assert.Contains(t, log, "TRANSACTION_SAVE - "+tx.TransactionID)
	assert.Contains(t, log, "ACCOUNT_DELETE - "+a.AccountNumber)
	assert.Contains(t, log, "USER_DELETE - "+u.UserID)
}

func TestMalformedRowsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, audit.New(t.TempDir()))
	require.NoError(t, err)

	good := models.NewUser("dave", "h", "dave@example.com", "Dave D", "", models.RoleCustomer)
	require.NoError(t, s.SaveUser(good))

	path := filepath.Join(dir, "users.csv")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage,row\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	users, err := s.AllUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "dave", users[0].Username)
}

func TestAccountCRUD(t *testing.T) {
	s := newTestStore(t)

	a := models.NewAccount("100000001", "USR123456", models.AccountSavings, 250)
	require.NoError(t, s.SaveAccount(a))

	b := models.NewAccount("100000002", "USR123456", models.AccountChecking, 500)
	require.NoError(t, s.SaveAccount(b))

	owned, err := s.AccountsByCustomer("USR123456")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	none, err := s.AccountsByCustomer("USR999999")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	a.Balance = 300
	require.NoError(t, s.UpdateAccount(a))
	got, err := s.GetAccount("100000001")
	require.NoError(t, err)
	assert.Equal(t, 300.0, got.Balance)

	require.NoError(t, s.DeleteAccount("100000001"))
	_, err = s.GetAccount("100000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionLedger(t *testing.T) {
	s := newTestStore(t)

	dep := models.NewTransaction("", "100000001", 100, models.TxDeposit, "Deposit")
	dep.Complete(0, 100)
	require.NoError(t, s.SaveTransaction(dep))

	xfer := models.NewTransaction("100000001", "100000002", 40, models.TxTransfer, "Transfer")
	xfer.Complete(100, 60)
	require.NoError(t, s.SaveTransaction(xfer))

	t.Run("filter by account", func(t *testing.T) {
		for number, want := range map[string]int{
			"100000001": 2,
			"100000002": 1,
			"100000003": 0,
		} {
			txs, err := s.TransactionsByAccount(number)
			require.NoError(t, err)
			assert.Len(t, txs, want, "account %s", number)
		}
	})

	t.Run("update by id corrects status", func(t *testing.T) {
		xfer.Fail()
		require.NoError(t, s.SaveTransaction(xfer))

		all, err := s.AllTransactions()
		require.NoError(t, err)
		require.Len(t, all, 2)

		got, err := s.GetTransaction(xfer.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.TxFailed, got.Status)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := s.GetTransaction("TXN000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("date range", func(t *testing.T) {
		now := time.Now()

		within, err := s.TransactionsByDateRange(now.Add(-time.Hour), now.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, within, 2)

		past, err := s.TransactionsByDateRange(now.Add(-2*time.Hour), now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, past)
	})
}

func TestConcurrentSaves(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a := models.NewAccount(fmt.Sprintf("1000%05d", n), "USR123456", models.AccountChecking, 100)
			_ = s.SaveAccount(a)
		}(i)
	}
	wg.Wait()

	accounts, err := s.AllAccounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 20)
}
