// Package log provides secure logging built on top of the standard slog
// package.
//
// SecureHandler wraps any slog.Handler and masks sensitive attribute values
// before they reach the output. A voiceline run handles a Google
// service-account key, so the masking targets the fields of that key
// (private_key, private_key_id, client_email, client_id), OAuth access
// tokens, bearer and basic credentials, JWTs and PEM private keys.
//
// Some secrets arrive inside longer text, for example a Google API error
// that echoes an access token or a proxy URL with user:password. Those
// fragments are replaced in place so the rest of the message stays useful.
// Error values are redacted through their Error text.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: verbose})
//	slog.SetDefault(logger)
//
//	logger.Debug("authenticating", "client_email", email) // client_email=***REDACTED***
package log
