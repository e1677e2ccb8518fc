package escrow

import "context"

// Authorizer answers role checks for privileged transitions. Injected so the
// core never hardcodes identities; implementations live at the edges (the
// Postgres users table in production, stubs in tests).
type Authorizer interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
