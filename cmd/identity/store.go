package identity

import (
	"context"
	"log/slog"
	"time"
)

// Credential is a publisher account.
type Credential struct {
	UserID    string
	Username  string
	CreatedAt time.Time

	passwordHash string
}

// String omits the password hash.
func (c Credential) String() string {
	return "Credential{UserID:" + c.UserID + " Username:" + c.Username + "}"
}

// LogValue omits the password hash.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", c.UserID),
		slog.String("username", c.Username),
	)
}

// Store is the credential persistence boundary.
type Store interface {
	// InsertCredential stores c. A taken username yields a ConflictError.
	InsertCredential(ctx context.Context, c Credential) error

	// CredentialByUsername returns the exact-match credential or a NotFoundError.
	CredentialByUsername(ctx context.Context, username string) (Credential, error)
}
