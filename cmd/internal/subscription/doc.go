// Package subscription implements the subscribe and confirm workflows.
//
// Subscribe validates the form, inserts the subscriber and its confirmation
// token in one transaction, commits, and only then sends the confirmation
// email. A failed send is reported to the caller but the committed rows stay.
//
// Confirm resolves a token to its subscriber and marks it confirmed.
// Confirming twice succeeds.
package subscription
