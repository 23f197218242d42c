// Package identity owns publisher credentials and their verification.
//
// It contains the credential model, its stores, HTTP Basic parsing and the
// Verifier used by the publish endpoint and the login form.
//
// Password hashes are read here and never leave this package: Credential
// exposes no accessor for its hash and its String/LogValue omit it.
package identity
