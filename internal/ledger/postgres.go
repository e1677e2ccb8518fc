package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads wallet balances and ledger entries. Writes come only from
// the escrow store's atomic updates, never from here.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := p.pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	return balance, nil
}

func (p *Postgres) Entries(ctx context.Context, accountID string) ([]Entry, error) {
	return p.list(ctx,
		`SELECT id, account_id, amount, kind, reference, created_at
		 FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (p *Postgres) AllEntries(ctx context.Context) ([]Entry, error) {
	return p.list(ctx,
		`SELECT id, account_id, amount, kind, reference, created_at
		 FROM ledger_entries ORDER BY created_at DESC`)
}

func (p *Postgres) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Ledger = (*Postgres)(nil)
var _ Ledger = (*Memory)(nil)
