package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"staybook/pkg/logger"
	"staybook/pkg/model"
)

type statement struct {
	Name string
	SQL  string
}

// Statements are idempotent and applied in order inside one transaction.
var Statements = []statement{
	{
		Name: "extensions",
		SQL:  `CREATE EXTENSION IF NOT EXISTS btree_gist`,
	},
	{
		Name: "reservations",
		SQL: `CREATE TABLE IF NOT EXISTS reservations (
  id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  owner_id    text NOT NULL CHECK (owner_id <> ''),
  pool        text NOT NULL DEFAULT '` + model.DefaultPool + `',
  unit_label  text NOT NULL CHECK (char_length(unit_label) BETWEEN 1 AND 120),
  check_in    timestamptz NOT NULL,
  check_out   timestamptz NOT NULL,
  guest_count integer NOT NULL CHECK (guest_count BETWEEN 1 AND 50),
  created_at  timestamptz NOT NULL DEFAULT now(),
  updated_at  timestamptz NOT NULL DEFAULT now(),
  CONSTRAINT reservations_interval_order CHECK (check_in < check_out)
)`,
	},
	{
		Name: "reservations_no_overlap",
		SQL: `DO $$
BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
    ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
      EXCLUDE USING gist (pool WITH =, tstzrange(check_in, check_out, '[]') WITH &&);
  END IF;
END $$`,
	},
	{
		Name: "reservations_check_in_idx",
		SQL:  `CREATE INDEX IF NOT EXISTS reservations_check_in_idx ON reservations (check_in, check_out)`,
	},
	{
		Name: "guests",
		SQL: `CREATE TABLE IF NOT EXISTS guests (
  id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  reservation_id uuid NOT NULL REFERENCES reservations (id),
  position       integer NOT NULL CHECK (position >= 0),
  name           text NOT NULL CHECK (char_length(name) BETWEEN 1 AND 120),
  email          text NOT NULL,
  UNIQUE (reservation_id, position)
)`,
	},
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	log.Info("Running Postgres migrations", "statements", len(Statements))

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, s := range Statements {
			if _, err := tx.Exec(ctx, s.SQL); err != nil {
				return fmt.Errorf("failed applying %s: %w", s.Name, err)
			}
			log.Info("Applied migration", "name", s.Name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("All Postgres migrations applied successfully")
	return nil
}
