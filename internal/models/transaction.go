package models

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxTransfer   TransactionType = "TRANSFER"
	TxPayment    TransactionType = "PAYMENT"
	TxFee        TransactionType = "FEE"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxCancelled TransactionStatus = "CANCELLED"
)

// Transaction is the immutable record of one money movement. Deposits
// leave FromAccountID empty; withdrawals leave ToAccountID empty.
// BalanceBefore and BalanceAfter snapshot the source account, or the
// destination for deposits.
type Transaction struct {
	TransactionID   string            `json:"transaction_id"`
	FromAccountID   string            `json:"from_account_id"`
	ToAccountID     string            `json:"to_account_id"`
	Amount          float64           `json:"amount"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	BalanceBefore   float64           `json:"balance_before"`
	BalanceAfter    float64           `json:"balance_after"`
	Timestamp       time.Time         `json:"timestamp"`
	ReferenceNumber string            `json:"reference_number"`
}

// NewTransaction builds a PENDING transaction with fresh TXN and REF
// identifiers stamped at the current time.
func NewTransaction(fromAccountID, toAccountID string, amount float64, txType TransactionType, description string) *Transaction {
	return &Transaction{
		TransactionID:   GenerateTransactionID(),
		FromAccountID:   fromAccountID,
		ToAccountID:     toAccountID,
		Amount:          amount,
		Type:            txType,
		Status:          TxPending,
		Description:     description,
		Timestamp:       time.Now(),
		ReferenceNumber: GenerateReferenceNumber(),
	}
}

// GenerateTransactionID returns "TXN" followed by nine random digits.
func GenerateTransactionID() string {
	return fmt.Sprintf("TXN%09d", rand.Intn(900000000)+100000000)
}

// GenerateReferenceNumber returns "REF" followed by ten random digits.
func GenerateReferenceNumber() string {
	return fmt.Sprintf("REF%010d", rand.Int63n(9000000000)+1000000000)
}

// Complete marks the transaction COMPLETED with the given balance
// snapshots.
func (t *Transaction) Complete(balanceBefore, balanceAfter float64) {
	t.Status = TxCompleted
	t.BalanceBefore = balanceBefore
	t.BalanceAfter = balanceAfter
}

// Fail marks the transaction FAILED, keeping whatever snapshots were set.
func (t *Transaction) Fail() {
	t.Status = TxFailed
}

// Involves reports whether the account appears on either side of the
// transaction.
func (t *Transaction) Involves(accountNumber string) bool {
	return t.FromAccountID == accountNumber || t.ToAccountID == accountNumber
}

// TransactionCSVHeader is the first line of the transactions table.
const TransactionCSVHeader = "transaction_id,from_account_id,to_account_id,amount,type,status,description,balance_before,balance_after,timestamp,reference_number"

// CSVRow serialises the transaction as one line of the transactions
// table. Descriptions are stored verbatim, so a description containing
// a comma produces a row that will not parse back; the descriptions
// written by the service never contain commas.
func (t *Transaction) CSVRow() string {
	return strings.Join([]string{
		t.TransactionID,
		t.FromAccountID,
		t.ToAccountID,
		FormatAmount(t.Amount),
		string(t.Type),
		string(t.Status),
		t.Description,
		FormatAmount(t.BalanceBefore),
		FormatAmount(t.BalanceAfter),
		t.Timestamp.Format(TimestampLayout),
		t.ReferenceNumber,
	}, ",")
}

// TransactionFromCSVRow parses one line of the transactions table.
func TransactionFromCSVRow(row string) (*Transaction, error) {
	tokens := strings.Split(row, ",")
	if len(tokens) < 11 {
		return nil, fmt.Errorf("transaction row has %d columns, want 11", len(tokens))
	}

	t := &Transaction{
		TransactionID:   tokens[0],
		FromAccountID:   tokens[1],
		ToAccountID:     tokens[2],
		Type:            ParseTransactionType(tokens[4]),
		Status:          ParseTransactionStatus(tokens[5]),
		Description:     tokens[6],
		ReferenceNumber: tokens[10],
	}

	var err error
	if t.Amount, err = strconv.ParseFloat(tokens[3], 64); err != nil {
		return nil, fmt.Errorf("transaction %s: bad amount %q", t.TransactionID, tokens[3])
	}
	if t.BalanceBefore, err = strconv.ParseFloat(tokens[7], 64); err != nil {
		return nil, fmt.Errorf("transaction %s: bad balance_before %q", t.TransactionID, tokens[7])
	}
	if t.BalanceAfter, err = strconv.ParseFloat(tokens[8], 64); err != nil {
		return nil, fmt.Errorf("transaction %s: bad balance_after %q", t.TransactionID, tokens[8])
	}
	if t.Timestamp, err = time.ParseInLocation(TimestampLayout, tokens[9], time.Local); err != nil {
		return nil, fmt.Errorf("transaction %s: bad timestamp %q", t.TransactionID, tokens[9])
	}
	return t, nil
}

// ParseTransactionType maps a stored type string to a TransactionType.
// Unknown values fall back to PAYMENT.
func ParseTransactionType(s string) TransactionType {
	switch TransactionType(strings.ToUpper(s)) {
	case TxDeposit:
		return TxDeposit
	case TxWithdrawal:
		return TxWithdrawal
	case TxTransfer:
		return TxTransfer
	case TxFee:
		return TxFee
	default:
		return TxPayment
	}
}

// ParseTransactionStatus maps a stored status string to a
// TransactionStatus. Unknown values fall back to PENDING.
func ParseTransactionStatus(s string) TransactionStatus {
	switch TransactionStatus(strings.ToUpper(s)) {
	case TxCompleted:
		return TxCompleted
	case TxFailed:
		return TxFailed
	case TxCancelled:
		return TxCancelled
	default:
		return TxPending
	}
}
