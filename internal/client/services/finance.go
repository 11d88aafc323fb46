package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

const dateLayout = "2006-01-02"

type AccountService interface {
	List(ctx context.Context) ([]models.Account, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
	Create(ctx context.Context, in models.AccountInput) (*models.Account, error)
	Update(ctx context.Context, id int64, in models.AccountInput) (*models.Account, error)
	Delete(ctx context.Context, id int64) error
}

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionService interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error)
	Update(ctx context.Context, id int64, in models.TransactionInput) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// resource implements the CRUD calls shared by accounts, categories and
// transactions.
type resource[T, In any] struct {
	api  API
	path string
}

func (r resource[T, In]) list(ctx context.Context, query url.Values) ([]T, error) {
	var out []T
	if err := r.api.Get(ctx, r.path, query, &out); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.path, err)
	}
	return out, nil
}

func (r resource[T, In]) get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := r.api.Get(ctx, r.item(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get %s: %w", r.item(id), err)
	}
	return &out, nil
}

func (r resource[T, In]) create(ctx context.Context, in In) (*T, error) {
	var out T
	if err := r.api.Post(ctx, r.path, in, &out); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.path, err)
	}
	return &out, nil
}

func (r resource[T, In]) update(ctx context.Context, id int64, in In) (*T, error) {
	var out T
	if err := r.api.Put(ctx, r.item(id), in, &out); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.item(id), err)
	}
	return &out, nil
}

func (r resource[T, In]) delete(ctx context.Context, id int64) error {
	if err := r.api.Delete(ctx, r.item(id)); err != nil {
		return fmt.Errorf("delete %s: %w", r.item(id), err)
	}
	return nil
}

func (r resource[T, In]) item(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

type accountService struct {
	r resource[models.Account, models.AccountInput]
}

func NewAccountService(api API) AccountService {
	return &accountService{r: resource[models.Account, models.AccountInput]{api: api, path: "/accounts"}}
}

func (s *accountService) List(ctx context.Context) ([]models.Account, error) {
	return s.r.list(ctx, nil)
}

func (s *accountService) Get(ctx context.Context, id int64) (*models.Account, error) {
	return s.r.get(ctx, id)
}

func (s *accountService) Create(ctx context.Context, in models.AccountInput) (*models.Account, error) {
	return s.r.create(ctx, in)
}

func (s *accountService) Update(ctx context.Context, id int64, in models.AccountInput) (*models.Account, error) {
	return s.r.update(ctx, id, in)
}

func (s *accountService) Delete(ctx context.Context, id int64) error {
	return s.r.delete(ctx, id)
}

type categoryService struct {
	r resource[models.Category, models.CategoryInput]
}

func NewCategoryService(api API) CategoryService {
	return &categoryService{r: resource[models.Category, models.CategoryInput]{api: api, path: "/categories"}}
}

func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.r.list(ctx, nil)
}

func (s *categoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	return s.r.get(ctx, id)
}

func (s *categoryService) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	return s.r.create(ctx, in)
}

func (s *categoryService) Update(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	return s.r.update(ctx, id, in)
}

func (s *categoryService) Delete(ctx context.Context, id int64) error {
	return s.r.delete(ctx, id)
}

type transactionService struct {
	r resource[models.Transaction, models.TransactionInput]
}

func NewTransactionService(api API) TransactionService {
	return &transactionService{r: resource[models.Transaction, models.TransactionInput]{api: api, path: "/transactions"}}
}

func (s *transactionService) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	return s.r.list(ctx, filterQuery(filter))
}

func (s *transactionService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.r.get(ctx, id)
}

func (s *transactionService) Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error) {
	return s.r.create(ctx, in)
}

func (s *transactionService) Update(ctx context.Context, id int64, in models.TransactionInput) (*models.Transaction, error) {
	return s.r.update(ctx, id, in)
}

func (s *transactionService) Delete(ctx context.Context, id int64) error {
	return s.r.delete(ctx, id)
}

func filterQuery(f models.TransactionFilter) url.Values {
	q := url.Values{}
	if !f.StartDate.IsZero() {
		q.Set("start_date", f.StartDate.Format(dateLayout))
	}
	if !f.EndDate.IsZero() {
		q.Set("end_date", f.EndDate.Format(dateLayout))
	}
	if f.CategoryID != 0 {
		q.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.AccountID != 0 {
		q.Set("account_id", strconv.FormatInt(f.AccountID, 10))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

type dashboardService struct {
	api API
}

func NewDashboardService(api API) DashboardService {
	return &dashboardService{api: api}
}

func (s *dashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := s.api.Get(ctx, "/dashboard/stats", nil, &out); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &out, nil
}
