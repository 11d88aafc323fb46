package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/config"
	"github.com/dmitrijs2005/fintrack/internal/client/localdb"
	"github.com/dmitrijs2005/fintrack/internal/client/routes"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/session"
	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	store   tokenstore.Store
	api     *client.Client
	metrics *prometheus.Registry
	session *session.Manager
	nav     *routes.History

	accounts     services.AccountService
	categories   services.CategoryService
	transactions services.TransactionService
	dashboard    services.DashboardService
	users        services.UserService

	reader   *bufio.Reader
	returnTo string
}

// NewApp wires storage, the API client, services, the session and the
// navigator. With c.Ephemeral the credential lives in memory only.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {

	a := &App{
		config:  c,
		log:     log,
		metrics: prometheus.NewRegistry(),
		nav:     routes.NewHistory(client.HomeView),
		reader:  bufio.NewReader(os.Stdin),
	}

	if c.Ephemeral {
		a.store = tokenstore.NewMemoryStore("")
	} else {
		db, err := localdb.Open(ctx, c.DatabasePath)
		if err != nil {
			log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
			return nil, err
		}
		a.db = db
		a.store = tokenstore.NewSQLiteStore(db)
	}

	api, err := client.New(c.APIBaseURL, a.store,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log),
		client.WithNavigator(a.nav),
		client.WithRegisterer(a.metrics),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.api = api

	auth := services.NewAuthService(api, api.Store())
	a.session = session.New(auth, api.Store(), log)

	api.OnUnauthorized(a.session.Expire)
	api.OnUnauthorized(func(context.Context, string) {
		printlnFn("Your session has expired. Please sign in again.")
	})

	a.accounts = services.NewAccountService(api)
	a.categories = services.NewCategoryService(api)
	a.transactions = services.NewTransactionService(api)
	a.dashboard = services.NewDashboardService(api)
	a.users = services.NewUserService(api)

	return a, nil
}

// Run resolves the stored credential in the background and serves the REPL
// until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to FinTrack CLI (type 'help' for commands)")

	go func() {
		if err := a.session.Init(ctx); err != nil {
			a.log.Warn(ctx, "session start-up", "error", err)
		}
		if s := a.session.State(); s.IsAuthenticated() {
			printlnFn("Signed in as", s.User.DisplayName())
		}
	}()

	runREPL(ctx, a, a.status, a.reader)
}

// Close releases the local database.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State().IsAuthenticated()
}

func (a *App) status() string {
	s := a.session.State()

	who := "signed out"
	switch {
	case s.IsLoading():
		who = "checking session"
	case s.IsAuthenticated():
		who = s.User.DisplayName()
	}

	return fmt.Sprintf("(%s %s)", who, a.nav.Current())
}

// visit runs render when the guard for path admits the current session.
// A redirect away from a protected view remembers it for after sign-in.
func (a *App) visit(ctx context.Context, path string, render func(context.Context) error) error {

	d := routes.Guard(a.session.State(), path)

	switch d.Action {
	case routes.Defer:
		return nil

	case routes.Redirect:
		if d.From != "" {
			a.returnTo = d.From
		}
		a.nav.Navigate(d.To)
		if d.To == client.LoginView {
			printlnFn("Please sign in first (login, magic, widget or register).")
		} else {
			printlnFn("You are already signed in.")
		}
		return nil
	}

	a.nav.Navigate(path)
	return render(ctx)
}

// show renders the protected view at path, as after a successful sign-in.
func (a *App) show(ctx context.Context, path string) error {
	switch path {
	case routes.AccountsView:
		return a.Accounts(ctx, nil)
	case routes.CategoriesView:
		return a.Categories(ctx, nil)
	case routes.TransactionsView:
		return a.Transactions(ctx, nil)
	case routes.ProfileView:
		return a.Profile(ctx, nil)
	case routes.SettingsView:
		return a.Settings(ctx)
	default:
		return a.Dashboard(ctx)
	}
}

// open renders a view without prompting. Views that need input only print
// what can be done there.
func (a *App) open(ctx context.Context, path string) error {
	switch path {
	case client.LoginView, client.RegisterView, client.VerifyView:
		return a.visit(ctx, path, func(context.Context) error {
			printlnFn("Sign in with login, magic, verify, widget or register.")
			return nil
		})
	case routes.LandingView:
		return a.visit(ctx, path, func(context.Context) error {
			printlnFn("FinTrack keeps your accounts, categories and transactions in one place.")
			return nil
		})
	}
	return a.show(ctx, path)
}

func (a *App) afterSignIn(ctx context.Context) error {
	printlnFn("Signed in as", a.session.State().User.DisplayName())

	target := routes.ReturnTarget(a.returnTo)
	a.returnTo = ""
	return a.show(ctx, target)
}
