package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables used by the stores if they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaPostgres)
	return err
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS mastery_states (
  learner_id      UUID NOT NULL,
  kind            TEXT NOT NULL CHECK (kind IN ('skill', 'item')),
  subject_id      TEXT NOT NULL,
  p_know          DOUBLE PRECISION NOT NULL,
  last_updated_at TIMESTAMPTZ,
  attempts        INTEGER NOT NULL DEFAULT 0,
  correct_count   INTEGER NOT NULL DEFAULT 0,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (learner_id, kind, subject_id)
);

CREATE TABLE IF NOT EXISTS skill_parameters (
  skill_id   TEXT PRIMARY KEY,
  p_init     DOUBLE PRECISION NOT NULL,
  p_transit  DOUBLE PRECISION NOT NULL,
  slip       DOUBLE PRECISION NOT NULL,
  guess      DOUBLE PRECISION NOT NULL,
  forget     DOUBLE PRECISION,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS observations (
  id            UUID PRIMARY KEY,
  seq           BIGSERIAL NOT NULL,
  learner_id    UUID NOT NULL,
  kind          TEXT NOT NULL CHECK (kind IN ('skill', 'item')),
  subject_id    TEXT NOT NULL,
  correct       BOOLEAN NOT NULL,
  occurred_at   TIMESTAMPTZ NOT NULL,
  p_know_before DOUBLE PRECISION NOT NULL,
  p_know_after  DOUBLE PRECISION NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE observations ADD COLUMN IF NOT EXISTS seq BIGSERIAL NOT NULL;

DROP INDEX IF EXISTS idx_observations_track;
CREATE INDEX IF NOT EXISTS idx_observations_track_seq
  ON observations (learner_id, kind, subject_id, occurred_at, seq);
CREATE INDEX IF NOT EXISTS idx_observations_subject
  ON observations (kind, subject_id);

CREATE TABLE IF NOT EXISTS items (
  item_id          TEXT PRIMARY KEY,
  default_skill_id TEXT,
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS item_skills (
  item_id  TEXT NOT NULL REFERENCES items(item_id) ON DELETE CASCADE,
  skill_id TEXT NOT NULL,
  PRIMARY KEY (item_id, skill_id)
);

CREATE TABLE IF NOT EXISTS progress_snapshots (
  id              UUID PRIMARY KEY,
  learner_id      UUID NOT NULL,
  tracked_skills  INTEGER NOT NULL,
  tracked_items   INTEGER NOT NULL,
  due_skills      INTEGER NOT NULL,
  due_items       INTEGER NOT NULL,
  mastered_skills INTEGER NOT NULL,
  mastered_items  INTEGER NOT NULL,
  taken_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progress_snapshots_learner
  ON progress_snapshots (learner_id, taken_at DESC);
`
