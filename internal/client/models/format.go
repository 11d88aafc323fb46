package models

import "github.com/shopspring/decimal"

// FormatMoney renders an amount with two decimals, using the rupee sign for
// INR (the API's default currency) and the currency code otherwise.
func FormatMoney(amount decimal.Decimal, currency string) string {
	symbol := currency
	switch currency {
	case "", "INR":
		symbol = "₹"
	}
	return symbol + amount.StringFixed(2)
}
