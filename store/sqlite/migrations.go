package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the payments log (SQLite).
var Migrations = migrate.NewGroup("payments")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_payments_wal",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS payments_wal (
    id          TEXT PRIMARY KEY,
    stream      TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    type        TEXT NOT NULL,
    client      INTEGER NOT NULL,
    tx          INTEGER NOT NULL,
    amount      TEXT,
    recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_wal_stream_seq ON payments_wal (stream, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS payments_wal`)
				return err
			},
		},
	)
}
