package routes

import (
	"sort"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/session"
)

// Kind is the guard applied to a view.
type Kind int

const (
	Open Kind = iota
	Public
	Private
)

const (
	LandingView      = "/landing"
	TransactionsView = "/transactions"
	AccountsView     = "/accounts"
	CategoriesView   = "/categories"
	SettingsView     = "/settings"
	ProfileView      = "/profile"
)

// Table maps every known view path to its guard.
var Table = map[string]Kind{
	client.LoginView:    Public,
	client.RegisterView: Public,
	client.VerifyView:   Public,
	LandingView:         Open,
	client.HomeView:     Private,
	TransactionsView:    Private,
	AccountsView:        Private,
	CategoriesView:      Private,
	SettingsView:        Private,
	ProfileView:         Private,
}

// Guard applies the table's guard for path. Unknown paths redirect home.
func Guard(state session.State, path string) Decision {
	kind, ok := Table[stripQuery(path)]
	if !ok {
		return Decision{Action: Redirect, To: client.HomeView}
	}
	switch kind {
	case Public:
		return PublicOnly(state, path)
	case Private:
		return Protected(state, path)
	default:
		return Decision{Action: Render}
	}
}

// ReturnTarget is where to go after signing in: from when it names a
// protected view, home otherwise.
func ReturnTarget(from string) string {
	if Table[stripQuery(from)] == Private {
		return from
	}
	return client.HomeView
}

// Paths lists the known views in lexical order.
func Paths() []string {
	out := make([]string, 0, len(Table))
	for p := range Table {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
