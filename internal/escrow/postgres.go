package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const txColumns = `id, payment_ref, buyer_id, seller_id, product_id,
	total_amount, platform_share, seller_share, status,
	buyer_confirmation, confirmation_note, confirmation_code,
	created_at, paid_at, confirmed_at, resolved_at`

// PostgresStore implements Store on escrow_transactions. Mutations run inside
// a single database transaction with the row locked FOR UPDATE, and ledger
// entries are written in that same transaction so status changes and wallet
// credits commit or roll back together.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, t *Transaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO escrow_transactions (`+txColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, t.PaymentRef, t.BuyerID, t.SellerID, t.ProductID,
		t.TotalAmount, t.PlatformShare, t.SellerShare, t.Status,
		nullable(string(t.BuyerConfirmation)), nullable(t.ConfirmationNote), t.ConfirmationCode,
		t.CreatedAt, t.PaidAt, t.ConfirmedAt, t.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePaymentRef
		}
		return fmt.Errorf("create escrow transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (s *PostgresStore) GetByPaymentRef(ctx context.Context, ref string) (*Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions WHERE payment_ref = $1`, ref)
	return scanTransaction(row)
}

func (s *PostgresStore) FindByBuyer(ctx context.Context, buyerID string) ([]*Transaction, error) {
	return s.list(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions WHERE buyer_id = $1 ORDER BY created_at`, buyerID)
}

func (s *PostgresStore) FindBySeller(ctx context.Context, sellerID string) ([]*Transaction, error) {
	return s.list(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions WHERE seller_id = $1 ORDER BY created_at`, sellerID)
}

func (s *PostgresStore) FindPending(ctx context.Context) ([]*Transaction, error) {
	return s.list(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions
		 WHERE status NOT IN ('released', 'cancelled') ORDER BY created_at`)
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*Transaction, error) {
	return s.list(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions ORDER BY created_at`)
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn Mutation) (*Transaction, error) {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback(ctx)

	row := dbTx.QueryRow(ctx,
		`SELECT `+txColumns+` FROM escrow_transactions WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}

	entries, err := fn(t)
	if err != nil {
		return nil, err
	}

	_, err = dbTx.Exec(ctx,
		`UPDATE escrow_transactions
		 SET status = $2, buyer_confirmation = $3, confirmation_note = $4,
		     confirmed_at = $5, resolved_at = $6
		 WHERE id = $1`,
		t.ID, t.Status, nullable(string(t.BuyerConfirmation)), nullable(t.ConfirmationNote),
		t.ConfirmedAt, t.ResolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update escrow transaction: %w", err)
	}

	for _, e := range entries {
		if _, err := dbTx.Exec(ctx,
			`INSERT INTO ledger_entries (id, account_id, amount, kind, reference, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.AccountID, e.Amount, e.Kind, e.Reference, e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("record ledger entry: %w", err)
		}
		if _, err := dbTx.Exec(ctx,
			`INSERT INTO wallets (account_id, balance)
			 VALUES ($1, $2)
			 ON CONFLICT (account_id) DO UPDATE SET balance = wallets.balance + $2`,
			e.AccountID, e.Amount,
		); err != nil {
			return nil, fmt.Errorf("credit wallet: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query escrow transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var confirmation, note *string
	err := row.Scan(
		&t.ID, &t.PaymentRef, &t.BuyerID, &t.SellerID, &t.ProductID,
		&t.TotalAmount, &t.PlatformShare, &t.SellerShare, &t.Status,
		&confirmation, &note, &t.ConfirmationCode,
		&t.CreatedAt, &t.PaidAt, &t.ConfirmedAt, &t.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan escrow transaction: %w", err)
	}
	if confirmation != nil {
		t.BuyerConfirmation = Outcome(*confirmation)
	}
	if note != nil {
		t.ConfirmationNote = *note
	}
	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostgresAuthorizer answers admin checks from the users table owned by the
// auth service, which shares this database.
type PostgresAuthorizer struct {
	pool *pgxpool.Pool
}

func NewPostgresAuthorizer(pool *pgxpool.Pool) *PostgresAuthorizer {
	return &PostgresAuthorizer{pool: pool}
}

func (a *PostgresAuthorizer) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var role string
	err := a.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup role: %w", err)
	}
	return role == "admin", nil
}

var _ Store = (*PostgresStore)(nil)
var _ Authorizer = (*PostgresAuthorizer)(nil)
