// Package cli provides the interactive FinTrack command-line client.
//
// NewApp wires configuration, the local credential database, the API client,
// the finance services, the session manager and an in-memory navigator.
// App.Run resolves any stored credential in the background and serves a
// REPL until the user exits. Every view goes through the route guards:
// protected views redirect to the login view while signed out and return
// there after a successful sign-in; sign-in views redirect home while
// signed in.
package cli
