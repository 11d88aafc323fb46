package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

const dateLayout = "2006-01-02"

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := userFrom(r)
	out := []models.Account{}
	for _, a := range s.accounts {
		if a.UserID == owner {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {

	var in models.AccountInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Account name is required")
		return
	}
	if in.AccountType == "" {
		in.AccountType = models.AccountBank
	}
	if !in.AccountType.Valid() {
		writeDetail(w, http.StatusUnprocessableEntity, "Unknown account type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := models.Account{
		ID:          s.nextSeqLocked(),
		UserID:      userFrom(r),
		Name:        in.Name,
		AccountType: in.AccountType,
		Currency:    orDefault(in.Currency, "INR"),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Balance != nil {
		a.Balance = *in.Balance
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	s.accounts[a.ID] = a

	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedAccountLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Account not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {

	var in models.AccountInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedAccountLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Account not found")
		return
	}
	if in.AccountType != "" && !in.AccountType.Valid() {
		writeDetail(w, http.StatusUnprocessableEntity, "Unknown account type")
		return
	}

	a.Name = orDefault(in.Name, a.Name)
	a.AccountType = models.AccountType(orDefault(string(in.AccountType), string(a.AccountType)))
	a.Currency = orDefault(in.Currency, a.Currency)
	if in.Balance != nil {
		a.Balance = *in.Balance
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	a.UpdatedAt = s.now()
	s.accounts[a.ID] = a

	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ownedAccountLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Account not found")
		return
	}
	delete(s.accounts, a.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedAccountLocked(r *http.Request) (models.Account, bool) {
	id, ok := pathID(r)
	if !ok {
		return models.Account{}, false
	}
	a, ok := s.accounts[id]
	return a, ok && a.UserID == userFrom(r)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := userFrom(r)
	out := []models.Category{}
	for _, c := range s.categories {
		if c.UserID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {

	var in models.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Category name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := userFrom(r)
	for _, c := range s.categories {
		if c.UserID == owner && c.Name == in.Name {
			writeDetail(w, http.StatusBadRequest, "Category with this name already exists")
			return
		}
	}

	now := s.now()
	c := models.Category{
		ID:          s.nextSeqLocked(),
		UserID:      owner,
		Name:        in.Name,
		Description: in.Description,
		Color:       orDefault(in.Color, "#6366f1"),
		Icon:        in.Icon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	s.categories[c.ID] = c

	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.ownedCategoryLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Category not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {

	var in models.CategoryInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.ownedCategoryLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Category not found")
		return
	}
	c.Name = orDefault(in.Name, c.Name)
	c.Color = orDefault(in.Color, c.Color)
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.Icon != nil {
		c.Icon = in.Icon
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = s.now()
	s.categories[c.ID] = c

	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.ownedCategoryLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Category not found")
		return
	}
	delete(s.categories, c.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedCategoryLocked(r *http.Request) (models.Category, bool) {
	id, ok := pathID(r)
	if !ok {
		return models.Category{}, false
	}
	c, ok := s.categories[id]
	return c, ok && c.UserID == userFrom(r)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {

	q := r.URL.Query()
	limit, offset := 100, 0

	var start, end time.Time
	var err error
	if v := q.Get("start_date"); v != "" {
		if start, err = time.Parse(dateLayout, v); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid start_date")
			return
		}
	}
	if v := q.Get("end_date"); v != "" {
		if end, err = time.Parse(dateLayout, v); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid end_date")
			return
		}
		end = end.Add(24 * time.Hour)
	}
	categoryID, _ := strconv.ParseInt(q.Get("category_id"), 10, 64)
	account, _ := strconv.ParseInt(q.Get("account_id"), 10, 64)
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := userFrom(r)
	out := []models.Transaction{}
	for _, t := range s.transactions {
		switch {
		case t.UserID != owner,
			!start.IsZero() && t.CreatedAt.Before(start),
			!end.IsZero() && !t.CreatedAt.Before(end),
			categoryID != 0 && (t.CategoryID == nil || *t.CategoryID != categoryID),
			account != 0 && (t.AccountID == nil || *t.AccountID != account):
			continue
		}
		out = append(out, s.expandLocked(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {

	var in models.TransactionInput
	if !decode(w, r, &in) {
		return
	}
	if in.Amount == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Amount is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if detail, ok := s.checkRefsLocked(r, in); !ok {
		writeDetail(w, http.StatusBadRequest, detail)
		return
	}

	now := s.now()
	t := models.Transaction{
		ID:         s.nextSeqLocked(),
		UserID:     userFrom(r),
		Amount:     *in.Amount,
		Currency:   orDefault(in.Currency, "INR"),
		Merchant:   in.Merchant,
		CategoryID: in.CategoryID,
		AccountID:  in.AccountID,
		Status:     orDefault(in.Status, "completed"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.transactions[t.ID] = t

	writeJSON(w, http.StatusCreated, s.expandLocked(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.ownedTransactionLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, s.expandLocked(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {

	var in models.TransactionInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.ownedTransactionLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if detail, ok := s.checkRefsLocked(r, in); !ok {
		writeDetail(w, http.StatusBadRequest, detail)
		return
	}

	if in.Amount != nil {
		t.Amount = *in.Amount
	}
	t.Currency = orDefault(in.Currency, t.Currency)
	t.Status = orDefault(in.Status, t.Status)
	if in.Merchant != nil {
		t.Merchant = in.Merchant
	}
	if in.CategoryID != nil {
		t.CategoryID = in.CategoryID
	}
	if in.AccountID != nil {
		t.AccountID = in.AccountID
	}
	t.UpdatedAt = s.now()
	s.transactions[t.ID] = t

	writeJSON(w, http.StatusOK, s.expandLocked(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.ownedTransactionLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return
	}
	delete(s.transactions, t.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedTransactionLocked(r *http.Request) (models.Transaction, bool) {
	id, ok := pathID(r)
	if !ok {
		return models.Transaction{}, false
	}
	t, ok := s.transactions[id]
	return t, ok && t.UserID == userFrom(r)
}

func (s *Server) checkRefsLocked(r *http.Request, in models.TransactionInput) (string, bool) {
	owner := userFrom(r)
	if in.CategoryID != nil {
		if c, ok := s.categories[*in.CategoryID]; !ok || c.UserID != owner {
			return "Category not found", false
		}
	}
	if in.AccountID != nil {
		if a, ok := s.accounts[*in.AccountID]; !ok || a.UserID != owner {
			return "Account not found", false
		}
	}
	return "", true
}

func (s *Server) expandLocked(t models.Transaction) models.Transaction {
	t.Category, t.Account = nil, nil
	if t.CategoryID != nil {
		if c, ok := s.categories[*t.CategoryID]; ok {
			t.Category = &models.TransactionRef{ID: c.ID, Name: c.Name, Color: c.Color}
		}
	}
	if t.AccountID != nil {
		if a, ok := s.accounts[*t.AccountID]; ok {
			t.Account = &models.TransactionRef{ID: a.ID, Name: a.Name, AccountType: string(a.AccountType)}
		}
	}
	return t
}

// handleDashboard treats negative amounts as expenses and positive ones as
// income.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := userFrom(r)
	stats := models.DashboardStats{
		MonthlyBreakdown:   []models.MonthlyBreakdown{},
		CategoryBreakdown:  []models.CategoryBreakdown{},
		AccountBalances:    []models.AccountBalance{},
		RecentTransactions: []models.RecentTransaction{},
	}

	var txs []models.Transaction
	for _, t := range s.transactions {
		if t.UserID == owner {
			txs = append(txs, s.expandLocked(t))
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })

	months := map[string]int{}
	categories := map[string]int{}
	for _, t := range txs {
		month := t.CreatedAt.Format("2006-01")
		idx, ok := months[month]
		if !ok {
			idx = len(stats.MonthlyBreakdown)
			months[month] = idx
			stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, models.MonthlyBreakdown{Month: month})
		}

		if t.Amount.IsNegative() {
			spent := t.Amount.Neg()
			stats.Summary.TotalExpenses = stats.Summary.TotalExpenses.Add(spent)
			stats.MonthlyBreakdown[idx].Expenses = stats.MonthlyBreakdown[idx].Expenses.Add(spent)

			if t.Category != nil {
				ci, ok := categories[t.Category.Name]
				if !ok {
					ci = len(stats.CategoryBreakdown)
					categories[t.Category.Name] = ci
					stats.CategoryBreakdown = append(stats.CategoryBreakdown, models.CategoryBreakdown{Name: t.Category.Name, Color: t.Category.Color})
				}
				stats.CategoryBreakdown[ci].Amount = stats.CategoryBreakdown[ci].Amount.Add(spent)
			}
		} else {
			stats.Summary.TotalIncome = stats.Summary.TotalIncome.Add(t.Amount)
			stats.MonthlyBreakdown[idx].Income = stats.MonthlyBreakdown[idx].Income.Add(t.Amount)
		}

		if len(stats.RecentTransactions) < 5 {
			rt := models.RecentTransaction{
				ID:       t.ID,
				Amount:   t.Amount,
				Currency: t.Currency,
				Merchant: t.Merchant,
				Date:     t.CreatedAt.Format(dateLayout),
			}
			if t.Category != nil {
				rt.Category = strPtr(t.Category.Name)
			}
			if t.Account != nil {
				rt.Account = strPtr(t.Account.Name)
			}
			stats.RecentTransactions = append(stats.RecentTransactions, rt)
		}
	}
	stats.Summary.NetBalance = stats.Summary.TotalIncome.Sub(stats.Summary.TotalExpenses)

	for _, a := range s.accounts {
		if a.UserID != owner || !a.IsActive {
			continue
		}
		stats.Summary.AccountsCount++
		stats.AccountBalances = append(stats.AccountBalances, models.AccountBalance{
			ID: a.ID, Name: a.Name, Type: string(a.AccountType), Balance: a.Balance, Currency: a.Currency,
		})
	}
	sort.Slice(stats.AccountBalances, func(i, j int) bool { return stats.AccountBalances[i].ID < stats.AccountBalances[j].ID })

	writeJSON(w, http.StatusOK, stats)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
