package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, ""},
		{"email", &User{ID: 1, Email: ptr("a@example.com"), Phone: ptr("+1555")}, "a@example.com"},
		{"phone", &User{ID: 1, Email: ptr(""), Phone: ptr("+1555")}, "+1555"},
		{"telegram", &User{ID: 1, TelegramUsername: ptr("alice")}, "@alice"},
		{"id", &User{ID: 9}, "user#9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹12.50", FormatMoney(decimal.RequireFromString("12.5"), ""))
	assert.Equal(t, "₹-3.00", FormatMoney(decimal.NewFromInt(-3), "INR"))
	assert.Equal(t, "USD0.10", FormatMoney(decimal.RequireFromString("0.1"), "USD"))
}

func TestAccountType_Valid(t *testing.T) {
	assert.True(t, AccountWallet.Valid())
	assert.False(t, AccountType("bank_account").Valid())
	assert.False(t, AccountType("").Valid())
}

func TestAccount_DecodesStringAndNumberAmounts(t *testing.T) {
	var acc Account
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Main","account_type":"CASH","balance":"1050.25","currency":"INR"}`), &acc))
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("1050.25")))
	assert.Equal(t, AccountCash, acc.AccountType)

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"amount":-99.9,"merchant":null,"category":{"id":3,"name":"Food"}}`), &tx))
	assert.Equal(t, "-99.9", tx.Amount.String())
	assert.Nil(t, tx.Merchant)
	require.NotNil(t, tx.Category)
	assert.Equal(t, "Food", tx.Category.Name)
}
