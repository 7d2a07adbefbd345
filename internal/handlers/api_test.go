package handlers

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbank/backend/internal/audit"
	"github.com/lumenbank/backend/internal/config"
	"github.com/lumenbank/backend/internal/database"
	"github.com/lumenbank/backend/internal/server"
	"github.com/lumenbank/backend/internal/services"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	auditLog := audit.New(t.TempDir())
	store, err := database.New(t.TempDir(), auditLog)
	require.NoError(t, err)

	cfg := &config.Config{
		AuthHasher: "argon2",
		Argon2:     config.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLength: 32, SaltLength: 16},
	}
	bank, err := services.NewBankingService(store, auditLog, cfg)
	require.NoError(t, err)
	return NewAPI(bank)
}

func postReq(t *testing.T, path string, payload any) *server.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return &server.Request{Method: "POST", Path: path, Body: body, Query: url.Values{}}
}

func getReq(path string, query url.Values) *server.Request {
	return &server.Request{Method: "GET", Path: path, Query: query}
}

func decode(t *testing.T, resp *server.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &out))
	return out
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	t.Run("success", func(t *testing.T) {
		resp := api.Login(postReq(t, "/api/login", map[string]string{
			"username": "johndoe", "password": "customer123",
		}))
		require.Equal(t, 200, resp.Status)
		out := decode(t, resp)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "johndoe", out["username"])
		assert.Regexp(t, `^USR\d{6}$`, out["user_id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := api.Login(postReq(t, "/api/login", map[string]string{
			"username": "johndoe", "password": "nope",
		}))
		assert.Equal(t, 401, resp.Status)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := api.Login(postReq(t, "/api/login", map[string]string{
			"username": "ghost", "password": "whatever",
		}))
		assert.Equal(t, 401, resp.Status)

		out := decode(t, resp)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "invalid username or password", out["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := api.Login(postReq(t, "/api/login", map[string]string{"username": "johndoe"}))
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("invalid body", func(t *testing.T) {
		resp := api.Login(&server.Request{Method: "POST", Path: "/api/login", Body: []byte("{broken")})
		assert.Equal(t, 400, resp.Status)
	})
}

func TestRegisterUser(t *testing.T) {
	api := newTestAPI(t)

	payload := map[string]string{
		"username":  "newcomer",
		"password":  "secret123",
		"email":     "new@example.com",
		"full_name": "New Comer",
	}

	resp := api.RegisterUser(postReq(t, "/api/register", payload))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)
	assert.Equal(t, true, out["success"])
	assert.Regexp(t, `^USR\d{6}$`, out["user_id"])

	t.Run("duplicate", func(t *testing.T) {
		resp := api.RegisterUser(postReq(t, "/api/register", payload))
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("short password", func(t *testing.T) {
		bad := map[string]string{
			"username": "another", "password": "12345",
			"email": "a@b.co", "full_name": "Another One",
		}
		resp := api.RegisterUser(postReq(t, "/api/register", bad))
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("free-form email accepted", func(t *testing.T) {
		ok := map[string]string{
			"username": "another", "password": "secret123",
			"email": "not-an-email", "full_name": "Another One",
		}
		resp := api.RegisterUser(postReq(t, "/api/register", ok))
		assert.Equal(t, 200, resp.Status)
	})
}

func TestListAccounts(t *testing.T) {
	api := newTestAPI(t)

	resp := api.ListAccounts(getReq("/api/accounts", url.Values{"username": {"johndoe"}}))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)

	accounts := out["accounts"].([]any)
	require.Len(t, accounts, 1)
	first := accounts[0].(map[string]any)
	assert.Equal(t, "CHECKING", first["account_type"])
	assert.Equal(t, 1000.0, first["balance"])

	t.Run("missing username", func(t *testing.T) {
		resp := api.ListAccounts(getReq("/api/accounts", url.Values{}))
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("unknown username", func(t *testing.T) {
		resp := api.ListAccounts(getReq("/api/accounts", url.Values{"username": {"ghost"}}))
		assert.Equal(t, 404, resp.Status)
	})
}

func TestCreateAccountHandler(t *testing.T) {
	api := newTestAPI(t)

	resp := api.CreateAccount(postReq(t, "/api/accounts/create", map[string]any{
		"username":        "johndoe",
		"account_type":    "SAVINGS",
		"initial_balance": "250.00",
	}))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)
	assert.Regexp(t, `^\d{9}$`, out["account_number"])
	assert.Equal(t, "SAVINGS", out["account_type"])
	assert.Equal(t, 250.0, out["balance"], "string amounts are accepted")
}

func TestDepositAndWithdraw(t *testing.T) {
	api := newTestAPI(t)

	listResp := api.ListAccounts(getReq("/api/accounts", url.Values{"username": {"johndoe"}}))
	accounts := decode(t, listResp)["accounts"].([]any)
	number := accounts[0].(map[string]any)["account_number"].(string)

	t.Run("deposit", func(t *testing.T) {
		resp := api.Deposit(postReq(t, "/api/transactions/deposit", map[string]any{
			"account_number": number, "amount": 500,
		}))
		require.Equal(t, 200, resp.Status)
		out := decode(t, resp)
		assert.Equal(t, 1500.0, out["new_balance"])
		assert.Regexp(t, `^TXN\d{9}$`, out["transaction_id"])
		assert.Regexp(t, `^REF\d{10}$`, out["reference"])
	})

	t.Run("withdraw", func(t *testing.T) {
		resp := api.Withdraw(postReq(t, "/api/transactions/withdraw", map[string]any{
			"account_number": number, "amount": "100",
		}))
		require.Equal(t, 200, resp.Status)
		assert.Equal(t, 1400.0, decode(t, resp)["new_balance"])
	})

	t.Run("withdraw over limit", func(t *testing.T) {
		resp := api.Withdraw(postReq(t, "/api/transactions/withdraw", map[string]any{
			"account_number": number, "amount": 5000,
		}))
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("missing amount", func(t *testing.T) {
		resp := api.Deposit(postReq(t, "/api/transactions/deposit", map[string]any{
			"account_number": number,
		}))
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("unknown account", func(t *testing.T) {
		resp := api.Deposit(postReq(t, "/api/transactions/deposit", map[string]any{
			"account_number": "000000000", "amount": 10,
		}))
		assert.Equal(t, 404, resp.Status)
	})
}

func TestTransferHandler(t *testing.T) {
	api := newTestAPI(t)

	listResp := api.ListAccounts(getReq("/api/accounts", url.Values{"username": {"johndoe"}}))
	accounts := decode(t, listResp)["accounts"].([]any)
	from := accounts[0].(map[string]any)["account_number"].(string)

	createResp := api.CreateAccount(postReq(t, "/api/accounts/create", map[string]any{
		"username": "johndoe", "account_type": "SAVINGS", "initial_balance": 200,
	}))
	to := decode(t, createResp)["account_number"].(string)

	resp := api.Transfer(postReq(t, "/api/transactions/transfer", map[string]any{
		"from_account": from, "to_account": to, "amount": 100,
	}))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 900.0, decode(t, resp)["new_balance"])

	t.Run("unknown destination", func(t *testing.T) {
		resp := api.Transfer(postReq(t, "/api/transactions/transfer", map[string]any{
			"from_account": from, "to_account": "000000000", "amount": 10,
		}))
		assert.Equal(t, 404, resp.Status)
	})

	t.Run("missing accounts", func(t *testing.T) {
		resp := api.Transfer(postReq(t, "/api/transactions/transfer", map[string]any{"amount": 10}))
		assert.Equal(t, 400, resp.Status)
	})
}

func TestListTransactions(t *testing.T) {
	api := newTestAPI(t)

	listResp := api.ListAccounts(getReq("/api/accounts", url.Values{"username": {"johndoe"}}))
	accounts := decode(t, listResp)["accounts"].([]any)
	number := accounts[0].(map[string]any)["account_number"].(string)

	api.Deposit(postReq(t, "/api/transactions/deposit", map[string]any{
		"account_number": number, "amount": 50,
	}))

	resp := api.ListTransactions(getReq("/api/transactions", url.Values{"account_number": {number}}))
	require.Equal(t, 200, resp.Status)
	txs := decode(t, resp)["transactions"].([]any)
	require.Len(t, txs, 1)

	first := txs[0].(map[string]any)
	assert.Equal(t, "DEPOSIT", first["type"])
	assert.Equal(t, 50.0, first["amount"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, first["timestamp"])

	t.Run("unknown account", func(t *testing.T) {
		resp := api.ListTransactions(getReq("/api/transactions", url.Values{"account_number": {"000000000"}}))
		assert.Equal(t, 404, resp.Status)
	})
}

func TestBalanceHandler(t *testing.T) {
	api := newTestAPI(t)

	listResp := api.ListAccounts(getReq("/api/accounts", url.Values{"username": {"johndoe"}}))
	accounts := decode(t, listResp)["accounts"].([]any)
	number := accounts[0].(map[string]any)["account_number"].(string)

	resp := api.Balance(getReq("/api/balance", url.Values{"account_number": {number}}))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)
	assert.Equal(t, number, out["account_number"])
	assert.Equal(t, 1000.0, out["balance"])
}

func TestStatusHandler(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Status(getReq("/api/status", url.Values{}))
	require.Equal(t, 200, resp.Status)
	status := decode(t, resp)["status"].(map[string]any)
	assert.Equal(t, 2.0, status["total_users"])
	assert.Equal(t, 1.0, status["total_accounts"])
	assert.Equal(t, 1000.0, status["total_balance"])
}
