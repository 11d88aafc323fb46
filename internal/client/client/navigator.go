package client

import "strings"

const (
	LoginView    = "/login"
	RegisterView = "/register"
	VerifyView   = "/auth/verify"
	HomeView     = "/"
)

// Navigator is the view switcher the unauthorized interceptor drives.
type Navigator interface {
	Current() string
	Navigate(to string)
}

// IsPublicView reports whether path is one of the authentication views a
// 401 must not redirect away from.
func IsPublicView(path string) bool {
	return strings.HasPrefix(path, LoginView) ||
		strings.HasPrefix(path, RegisterView) ||
		path == VerifyView
}
