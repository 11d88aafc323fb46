package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/routes"
	"github.com/shopspring/decimal"
)

// table renders rows as aligned columns through printlnFn.
func table(header string, rows []string) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	for _, r := range rows {
		fmt.Fprintln(w, r)
	}
	_ = w.Flush()
	printlnFn(strings.TrimRight(buf.String(), "\n"))
}

func (a *App) Dashboard(ctx context.Context) error {
	return a.visit(ctx, client.HomeView, func(ctx context.Context) error {

		stats, err := a.dashboard.Stats(ctx)
		if err != nil {
			return err
		}

		s := stats.Summary
		printlnFn("Income:  ", models.FormatMoney(s.TotalIncome, ""))
		printlnFn("Expenses:", models.FormatMoney(s.TotalExpenses, ""))
		printlnFn("Net:     ", models.FormatMoney(s.NetBalance, ""))
		printlnFn("Accounts:", s.AccountsCount)

		if len(stats.RecentTransactions) > 0 {
			rows := make([]string, 0, len(stats.RecentTransactions))
			for _, t := range stats.RecentTransactions {
				rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s",
					t.Date, models.FormatMoney(t.Amount, t.Currency), deref(t.Merchant), deref(t.Category)))
			}
			table("DATE\tAMOUNT\tMERCHANT\tCATEGORY", rows)
		}
		return nil
	})
}

// Accounts handles "accounts [list|add|delete <id>]".
func (a *App) Accounts(ctx context.Context, args []string) error {
	return a.visit(ctx, routes.AccountsView, func(ctx context.Context) error {

		switch sub(args) {
		case "add":
			return a.addAccount(ctx)
		case "delete":
			id, err := idArg(args)
			if err != nil {
				return err
			}
			if err := a.accounts.Delete(ctx, id); err != nil {
				return err
			}
			printlnFn("Account deleted.")
			return nil
		}

		list, err := a.accounts.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			printlnFn("No accounts yet. Use 'accounts add'.")
			return nil
		}
		rows := make([]string, 0, len(list))
		for _, acc := range list {
			rows = append(rows, fmt.Sprintf("%d\t%s\t%s\t%s", acc.ID, acc.Name, acc.AccountType, models.FormatMoney(acc.Balance, acc.Currency)))
		}
		table("ID\tNAME\tTYPE\tBALANCE", rows)
		return nil
	})
}

func (a *App) addAccount(ctx context.Context) error {

	name, err := getSimpleText(a.reader, "Account name", os.Stdout)
	if err != nil {
		return err
	}
	kind, err := getSimpleText(a.reader, "Type (BANK_ACCOUNT, CREDIT_CARD, DEBIT_CARD, WALLET, CASH, OTHER)", os.Stdout)
	if err != nil {
		return err
	}
	balance, err := getSimpleText(a.reader, "Opening balance (empty for 0)", os.Stdout)
	if err != nil {
		return err
	}

	in := models.AccountInput{Name: name, AccountType: models.AccountType(strings.ToUpper(kind))}
	if in.AccountType != "" && !in.AccountType.Valid() {
		return fmt.Errorf("unknown account type %q", kind)
	}
	if balance != "" {
		d, err := decimal.NewFromString(balance)
		if err != nil {
			return fmt.Errorf("invalid balance %q", balance)
		}
		in.Balance = &d
	}

	acc, err := a.accounts.Create(ctx, in)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Account %q created (id %d).", acc.Name, acc.ID))
	return nil
}

// Categories handles "categories [list|add|delete <id>]".
func (a *App) Categories(ctx context.Context, args []string) error {
	return a.visit(ctx, routes.CategoriesView, func(ctx context.Context) error {

		switch sub(args) {
		case "add":
			name, err := getSimpleText(a.reader, "Category name", os.Stdout)
			if err != nil {
				return err
			}
			c, err := a.categories.Create(ctx, models.CategoryInput{Name: name})
			if err != nil {
				return err
			}
			printlnFn(fmt.Sprintf("Category %q created (id %d).", c.Name, c.ID))
			return nil
		case "delete":
			id, err := idArg(args)
			if err != nil {
				return err
			}
			if err := a.categories.Delete(ctx, id); err != nil {
				return err
			}
			printlnFn("Category deleted.")
			return nil
		}

		list, err := a.categories.List(ctx)
		if err != nil {
			return err
		}
		rows := make([]string, 0, len(list))
		for _, c := range list {
			rows = append(rows, fmt.Sprintf("%d\t%s\t%s", c.ID, c.Name, c.Color))
		}
		table("ID\tNAME\tCOLOR", rows)
		return nil
	})
}

// Transactions handles "transactions [list [key=value...]|add|delete <id>]".
// List filters: account, category, from, to (YYYY-MM-DD), limit, offset.
func (a *App) Transactions(ctx context.Context, args []string) error {
	return a.visit(ctx, routes.TransactionsView, func(ctx context.Context) error {

		switch sub(args) {
		case "add":
			return a.addTransaction(ctx)
		case "delete":
			id, err := idArg(args)
			if err != nil {
				return err
			}
			if err := a.transactions.Delete(ctx, id); err != nil {
				return err
			}
			printlnFn("Transaction deleted.")
			return nil
		}

		filter, err := parseFilter(args)
		if err != nil {
			return err
		}
		list, err := a.transactions.List(ctx, filter)
		if err != nil {
			return err
		}
		rows := make([]string, 0, len(list))
		for _, t := range list {
			var category, account string
			if t.Category != nil {
				category = t.Category.Name
			}
			if t.Account != nil {
				account = t.Account.Name
			}
			rows = append(rows, fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s", t.ID, t.CreatedAt.Local().Format(time.DateOnly),
				models.FormatMoney(t.Amount, t.Currency), deref(t.Merchant), category, account))
		}
		table("ID\tDATE\tAMOUNT\tMERCHANT\tCATEGORY\tACCOUNT", rows)
		return nil
	})
}

func (a *App) addTransaction(ctx context.Context) error {

	amount, err := getSimpleText(a.reader, "Amount (negative for expenses)", os.Stdout)
	if err != nil {
		return err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", amount)
	}
	merchant, err := getSimpleText(a.reader, "Merchant (optional)", os.Stdout)
	if err != nil {
		return err
	}
	categoryID, err := optionalID(a, "Category id (optional)")
	if err != nil {
		return err
	}
	accountID, err := optionalID(a, "Account id (optional)")
	if err != nil {
		return err
	}

	in := models.TransactionInput{Amount: &d, CategoryID: categoryID, AccountID: accountID}
	if merchant != "" {
		in.Merchant = &merchant
	}

	t, err := a.transactions.Create(ctx, in)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Transaction %d recorded: %s", t.ID, models.FormatMoney(t.Amount, t.Currency)))
	return nil
}

// Profile handles "profile [subcategories on|off]".
func (a *App) Profile(ctx context.Context, args []string) error {
	return a.visit(ctx, routes.ProfileView, func(ctx context.Context) error {

		if sub(args) == "subcategories" {
			return a.toggleSubcategories(ctx, args)
		}

		u, err := a.users.Profile(ctx)
		if err != nil {
			return err
		}
		printlnFn("Name:        ", u.DisplayName())
		printlnFn("Email:       ", deref(u.Email))
		printlnFn("Phone:       ", deref(u.Phone))
		printlnFn("Member since:", u.CreatedAt.Local().Format(time.DateOnly))
		printlnFn("Subcategories:", yesNo(u.ExpenseSubCategoryEnabled))
		return nil
	})
}

func (a *App) toggleSubcategories(ctx context.Context, args []string) error {
	if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
		return errors.New("usage: profile subcategories on|off")
	}

	enabled := args[1] == "on"
	u, err := a.users.Update(ctx, models.UserUpdate{ExpenseSubCategoryEnabled: &enabled})
	if err != nil {
		return err
	}
	printlnFn("Subcategories:", yesNo(u.ExpenseSubCategoryEnabled))
	return nil
}

// Diag prints per-endpoint request counts of this run.
func (a *App) Diag(ctx context.Context) error {
	families, err := a.metrics.Gather()
	if err != nil {
		return err
	}

	var rows []string
	for _, mf := range families {
		if mf.GetName() != "fintrack_client_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var cols []string
			for _, lp := range m.GetLabel() {
				cols = append(cols, lp.GetValue())
			}
			cols = append(cols, strconv.FormatFloat(m.GetCounter().GetValue(), 'f', 0, 64))
			rows = append(rows, strings.Join(cols, "\t"))
		}
	}
	if len(rows) == 0 {
		printlnFn("No requests yet.")
		return nil
	}
	table("CODE\tMETHOD\tPATH\tCOUNT", rows)
	return nil
}

func sub(args []string) string {
	if len(args) == 0 {
		return "list"
	}
	return args[0]
}

func idArg(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: %s <id>", args[0])
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[1])
	}
	return id, nil
}

func optionalID(a *App, prompt string) (*int64, error) {
	v, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil || v == "" {
		return nil, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", v)
	}
	return &id, nil
}

// parseFilter reads "list key=value ..." arguments.
func parseFilter(args []string) (models.TransactionFilter, error) {
	var f models.TransactionFilter
	if len(args) > 0 && args[0] == "list" {
		args = args[1:]
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return f, fmt.Errorf("expected key=value, got %q", arg)
		}

		var err error
		switch key {
		case "account":
			f.AccountID, err = strconv.ParseInt(value, 10, 64)
		case "category":
			f.CategoryID, err = strconv.ParseInt(value, 10, 64)
		case "from":
			f.StartDate, err = time.Parse(time.DateOnly, value)
		case "to":
			f.EndDate, err = time.Parse(time.DateOnly, value)
		case "limit":
			f.Limit, err = strconv.Atoi(value)
		case "offset":
			f.Offset, err = strconv.Atoi(value)
		default:
			return f, fmt.Errorf("unknown filter %q", key)
		}
		if err != nil {
			return f, fmt.Errorf("invalid %s %q", key, value)
		}
	}
	return f, nil
}

// Back returns to the previous view and renders it.
func (a *App) Back(ctx context.Context) error {
	if !a.nav.Back() {
		printlnFn("Nothing to go back to.")
		return nil
	}
	return a.open(ctx, a.nav.Current())
}

// Settings shows which sign-in methods are enabled.
func (a *App) Settings(ctx context.Context) error {
	return a.visit(ctx, routes.SettingsView, a.renderSettings)
}
