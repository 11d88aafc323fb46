// Package client is the single HTTP entry point of the FinTrack client.
//
// # Overview
//
// Client wraps an *http.Client whose transport is a chain of interceptors:
//
//  1. request id: stamps X-Request-ID on every request;
//  2. auth: attaches "Authorization: Bearer <credential>" whenever the token
//     store holds a credential, and reacts to 401 responses;
//  3. metrics: counts requests and observes their latency (optional).
//
// # Unauthorized responses
//
// A 401 on any call clears the stored credential and, unless the current
// view is one of the public authentication views, navigates to LoginView.
// The clear is a compare-and-clear against the credential that was sent, so
// a burst of concurrent 401s clears once and redirects at most once.
// Requests carrying WithCredentialExchange (login, register, code
// verification, widget login) are authentication attempts: their 401s are
// returned to the caller without the global side effect.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Status codes >= 400 are returned
// as *APIError, which matches ErrUnauthorized (401), ErrValidation (other
// 4xx) and ErrServer (5xx) with errors.Is. Every failure is classified
// (see Kind) and logged; the classification never changes control flow.
package client
