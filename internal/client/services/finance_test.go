package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(t *testing.T) *env {
	t.Helper()
	e := setup(t, "")
	u := e.srv.AddUser("a@example.com", "", "secret1")
	require.NoError(t, e.store.Set(context.Background(), e.srv.Token(u.ID)))
	return e
}

func ptr[T any](v T) *T { return &v }

func TestFinanceResources(t *testing.T) {
	e := signedIn(t)
	ctx := context.Background()

	accounts := NewAccountService(e.api)
	categories := NewCategoryService(e.api)
	transactions := NewTransactionService(e.api)
	dashboard := NewDashboardService(e.api)

	acc, err := accounts.Create(ctx, models.AccountInput{
		Name:        "Main",
		AccountType: models.AccountBank,
		Balance:     ptr(decimal.RequireFromString("1000.50")),
	})
	require.NoError(t, err)
	assert.Equal(t, "INR", acc.Currency)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("1000.5")))

	food, err := categories.Create(ctx, models.CategoryInput{Name: "Food", Color: "#ff0000"})
	require.NoError(t, err)

	_, err = categories.Create(ctx, models.CategoryInput{Name: "Food"})
	require.ErrorIs(t, err, client.ErrValidation)

	lunch, err := transactions.Create(ctx, models.TransactionInput{
		Amount:     ptr(decimal.RequireFromString("-250.00")),
		Merchant:   ptr("Cafe"),
		CategoryID: &food.ID,
		AccountID:  &acc.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, lunch.Category)
	assert.Equal(t, "Food", lunch.Category.Name)

	_, err = transactions.Create(ctx, models.TransactionInput{Amount: ptr(decimal.NewFromInt(5000))})
	require.NoError(t, err)

	all, err := transactions.List(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCategory, err := transactions.List(ctx, models.TransactionFilter{CategoryID: food.ID, StartDate: time.Now().Add(-48 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, lunch.ID, byCategory[0].ID)

	page, err := transactions.List(ctx, models.TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	stats, err := dashboard.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Summary.TotalExpenses.Equal(decimal.NewFromInt(250)))
	assert.True(t, stats.Summary.TotalIncome.Equal(decimal.NewFromInt(5000)))
	assert.True(t, stats.Summary.NetBalance.Equal(decimal.NewFromInt(4750)))
	assert.Equal(t, 1, stats.Summary.AccountsCount)
	require.Len(t, stats.CategoryBreakdown, 1)
	assert.Equal(t, "Food", stats.CategoryBreakdown[0].Name)

	renamed, err := accounts.Update(ctx, acc.ID, models.AccountInput{Name: "Salary"})
	require.NoError(t, err)
	assert.Equal(t, "Salary", renamed.Name)
	assert.Equal(t, models.AccountBank, renamed.AccountType)

	require.NoError(t, transactions.Delete(ctx, lunch.ID))
	_, err = transactions.Get(ctx, lunch.ID)
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, 404, client.StatusCode(err))

	list, err := accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUserService(t *testing.T) {
	e := signedIn(t)
	ctx := context.Background()
	users := NewUserService(e.api)

	u, err := users.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, u.ExpenseSubCategoryEnabled)

	u, err = users.Update(ctx, models.UserUpdate{ExpenseSubCategoryEnabled: ptr(true)})
	require.NoError(t, err)
	assert.True(t, u.ExpenseSubCategoryEnabled)
}

func TestFilterQuery(t *testing.T) {
	q := filterQuery(models.TransactionFilter{
		StartDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		CategoryID: 4,
		Limit:      20,
	})
	assert.Equal(t, "category_id=4&end_date=2025-03-31&limit=20&start_date=2025-03-01", q.Encode())
	assert.Empty(t, filterQuery(models.TransactionFilter{}).Encode())
}
