package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountBank       AccountType = "BANK_ACCOUNT"
	AccountCreditCard AccountType = "CREDIT_CARD"
	AccountDebitCard  AccountType = "DEBIT_CARD"
	AccountWallet     AccountType = "WALLET"
	AccountCash       AccountType = "CASH"
	AccountOther      AccountType = "OTHER"
)

// Valid reports whether t is one of the account types the API accepts.
func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountCreditCard, AccountDebitCard, AccountWallet, AccountCash, AccountOther:
		return true
	}
	return false
}

type Account struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	AccountType AccountType     `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type AccountInput struct {
	Name        string           `json:"name,omitempty"`
	AccountType AccountType      `json:"account_type,omitempty"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

type Category struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	Icon        *string   `json:"icon"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryInput struct {
	Name        string  `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// TransactionRef is the short form of a related category or account.
type TransactionRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	AccountType string `json:"account_type,omitempty"`
}

type Transaction struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Merchant       *string         `json:"merchant"`
	CategoryID     *int64          `json:"category_id"`
	AccountID      *int64          `json:"account_id"`
	SourceImageURL *string         `json:"source_image_url"`
	Status         string          `json:"status"`
	Category       *TransactionRef `json:"category,omitempty"`
	Account        *TransactionRef `json:"account,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type TransactionInput struct {
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	Merchant   *string          `json:"merchant,omitempty"`
	CategoryID *int64           `json:"category_id,omitempty"`
	AccountID  *int64           `json:"account_id,omitempty"`
	Status     string           `json:"status,omitempty"`
}

// TransactionFilter narrows GET /transactions. Zero values are omitted.
type TransactionFilter struct {
	StartDate  time.Time
	EndDate    time.Time
	CategoryID int64
	AccountID  int64
	Limit      int
	Offset     int
}

type DashboardSummary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetBalance    decimal.Decimal `json:"net_balance"`
	AccountsCount int             `json:"accounts_count"`
}

type MonthlyBreakdown struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type CategoryBreakdown struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Color  string          `json:"color"`
}

type AccountBalance struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type RecentTransaction struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Merchant *string         `json:"merchant"`
	Category *string         `json:"category"`
	Account  *string         `json:"account"`
	Date     string          `json:"date"`
}

type DashboardStats struct {
	Summary            DashboardSummary    `json:"summary"`
	MonthlyBreakdown   []MonthlyBreakdown  `json:"monthly_breakdown"`
	CategoryBreakdown  []CategoryBreakdown `json:"category_breakdown"`
	AccountBalances    []AccountBalance    `json:"account_balances"`
	RecentTransactions []RecentTransaction `json:"recent_transactions"`
}
