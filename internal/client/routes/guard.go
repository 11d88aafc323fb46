// Package routes decides which view may be shown for a given session
// state, and keeps the in-memory view history the shell navigates with.
package routes

import (
	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/session"
)

type Action int

const (
	// Defer shows nothing until the session has resolved.
	Defer Action = iota
	Render
	Redirect
)

func (a Action) String() string {
	switch a {
	case Defer:
		return "defer"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is a guard's verdict. To is set for Redirect; From is the
// location the user wanted, remembered for after login.
type Decision struct {
	Action Action
	To     string
	From   string
}

// Protected admits authenticated sessions only.
func Protected(state session.State, target string) Decision {
	switch {
	case state.IsLoading():
		return Decision{Action: Defer}
	case state.IsAuthenticated():
		return Decision{Action: Render}
	default:
		return Decision{Action: Redirect, To: client.LoginView, From: target}
	}
}

// PublicOnly admits signed-out sessions only.
func PublicOnly(state session.State, target string) Decision {
	switch {
	case state.IsLoading():
		return Decision{Action: Defer}
	case state.IsAuthenticated():
		return Decision{Action: Redirect, To: client.HomeView}
	default:
		return Decision{Action: Render}
	}
}
