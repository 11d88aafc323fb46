// Package common contains constants and helpers shared by the FinTrack
// client packages.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme prefixes the credential in the Authorization header.
	BearerScheme = "Bearer"

	// RequestIDHeaderName correlates client log lines with server logs.
	RequestIDHeaderName = "X-Request-ID"

	// RequestIDLogKey is the log attribute holding the request id.
	RequestIDLogKey = "request_id"

	// AccessTokenStorageKey is the fixed key the credential is persisted under.
	AccessTokenStorageKey = "finance_tracker_access_token"

	// TokenSavedAtStorageKey records when the credential was last written.
	TokenSavedAtStorageKey = "finance_tracker_token_saved_at"
)
