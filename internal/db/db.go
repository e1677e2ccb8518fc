package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the escrow schema exists.
func Init(dsn string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		logrus.WithError(err).Fatal("unable to connect to database")
	}

	if err = Conn.Ping(context.Background()); err != nil {
		logrus.WithError(err).Fatal("unable to ping database")
	}

	logrus.Info("connected to Postgres")

	ensureEscrowSchema()
	ensureWalletSchema()
	ensureLedgerSchema()
}

// ensureEscrowSchema creates escrow_transactions if missing. The payment_ref
// UNIQUE constraint is what makes capture idempotent under webhook retries.
func ensureEscrowSchema() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS escrow_transactions (
            id UUID PRIMARY KEY,
            payment_ref TEXT NOT NULL UNIQUE,
            buyer_id UUID NOT NULL,
            seller_id UUID NOT NULL,
            product_id UUID NOT NULL,
            total_amount BIGINT NOT NULL CHECK (total_amount > 0),
            platform_share BIGINT NOT NULL,
            seller_share BIGINT NOT NULL,
            status TEXT NOT NULL CHECK (status IN (
                'pending', 'held', 'buyer_confirmed_received',
                'buyer_confirmed_not_received', 'released', 'cancelled'
            )),
            buyer_confirmation TEXT NULL CHECK (buyer_confirmation IN ('received', 'not_received')),
            confirmation_note TEXT NULL,
            confirmation_code TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            paid_at TIMESTAMP WITH TIME ZONE NULL,
            confirmed_at TIMESTAMP WITH TIME ZONE NULL,
            resolved_at TIMESTAMP WITH TIME ZONE NULL,
            CHECK (platform_share + seller_share = total_amount)
        );
        CREATE INDEX IF NOT EXISTS idx_escrow_buyer ON escrow_transactions(buyer_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_escrow_seller ON escrow_transactions(seller_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_escrow_status ON escrow_transactions(status);
    `)
	if err != nil {
		logrus.WithError(err).Error("failed to ensure escrow_transactions")
	}
}

// ensureWalletSchema creates wallets if missing. account_id is TEXT so the
// platform revenue account can live beside user wallets.
func ensureWalletSchema() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            account_id TEXT PRIMARY KEY,
            balance BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		logrus.WithError(err).Error("failed to ensure wallets")
	}
}

// ensureLedgerSchema creates ledger_entries if missing.
func ensureLedgerSchema() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ledger_entries (
            id UUID PRIMARY KEY,
            account_id TEXT NOT NULL,
            amount BIGINT NOT NULL CHECK (amount > 0),
            kind TEXT NOT NULL CHECK (kind IN ('escrow_release', 'platform_fee', 'refund')),
            reference UUID NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_ledger_reference ON ledger_entries(reference);
    `)
	if err != nil {
		logrus.WithError(err).Error("failed to ensure ledger_entries")
	}
}
