// Package log provides logging that masks personal data, built on top of
// the standard slog package.
//
// Attack runs handle recovered names, dates of birth, emails and addresses.
// The SecureHandler masks those values in log output so that logs can be
// shared without leaking the identities an assessment has just recovered:
//   - Quasi-identifier keys (first_name, last_name, dob, zip, email, ...)
//   - Recovered material (plaintext, values, tuple, profile_key)
//   - Values that look like an email address or a calendar date
//
// Digests are left untouched. Masking can be switched off with WithReveal,
// which the CLI exposes as --reveal.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("recovered", "scheme", "mk1", "first_name", "Anna") // first_name masked
//	slog.SetDefault(logger)
package log
