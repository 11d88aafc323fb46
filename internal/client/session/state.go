package session

import "github.com/dmitrijs2005/fintrack/internal/client/models"

// Status is the lifecycle stage of the session.
type Status int

const (
	Uninitialized Status = iota
	Initializing
	Authenticated
	Anonymous
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the session. User is non-nil exactly
// when Status is Authenticated.
type State struct {
	Status     Status
	User       *models.User
	Credential string
}

func (s State) IsAuthenticated() bool {
	return s.Status == Authenticated
}

// IsLoading reports whether the stored credential is still being checked.
func (s State) IsLoading() bool {
	return s.Status == Uninitialized || s.Status == Initializing
}

func (s State) equal(o State) bool {
	return s.Status == o.Status && s.User == o.User && s.Credential == o.Credential
}
