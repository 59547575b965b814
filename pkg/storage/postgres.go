package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/logging"
	"github.com/veriface/veriface/pkg/matching"
)

// PostgresStore implements GalleryStore on PostgreSQL for deployments where
// galleries are shared between machines. Records are stored as JSONB and
// embeddings as FLOAT8 arrays; sample order is preserved through an explicit
// position column.
type PostgresStore struct {
	conn *pgx.Conn
}

// NewPostgresStore connects to the database and ensures the schema is
// initialized.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Debug("Connected to postgres gallery store")
	return &PostgresStore{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS identities (
			identity TEXT PRIMARY KEY,
			enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		);
		CREATE TABLE IF NOT EXISTS gallery_samples (
			id BIGSERIAL PRIMARY KEY,
			identity TEXT NOT NULL REFERENCES identities(identity) ON DELETE CASCADE,
			position INT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			record JSONB NOT NULL,
			embedding FLOAT8[],
			captured_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS gallery_samples_identity_idx ON gallery_samples (identity, position);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// CreateGallery enrolls a new identity with its initial samples.
func (ps *PostgresStore) CreateGallery(ctx context.Context, identity string, samples matching.Gallery, metadata map[string]string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}

	exists, err := ps.Exists(ctx, identity)
	if err != nil {
		return err
	}
	if exists {
		return ErrIdentityExists
	}

	if metadata == nil {
		metadata = make(map[string]string)
	}

	tx, err := ps.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO identities (identity, enrolled_at, updated_at, metadata)
		VALUES ($1, NOW(), NOW(), $2)
	`, identity, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := insertSamples(ctx, tx, identity, samples); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit enrollment: %w", err)
	}

	logging.Infof("Enrolled identity in postgres: %s (%d samples)", identity, len(samples))
	return nil
}

// SaveGallery replaces the stored gallery for an identity.
func (ps *PostgresStore) SaveGallery(ctx context.Context, gallery IdentityGallery) error {
	if err := validateIdentity(gallery.Identity); err != nil {
		return err
	}

	if gallery.Metadata == nil {
		gallery.Metadata = make(map[string]string)
	}

	tx, err := ps.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO identities (identity, enrolled_at, updated_at, metadata)
		VALUES ($1, NOW(), NOW(), $2)
		ON CONFLICT (identity) DO UPDATE SET updated_at = NOW(), metadata = EXCLUDED.metadata
	`, gallery.Identity, gallery.Metadata)
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}

	// Replace the sample rows; position preserves gallery order.
	if _, err := tx.Exec(ctx, "DELETE FROM gallery_samples WHERE identity = $1", gallery.Identity); err != nil {
		return fmt.Errorf("failed to clear samples: %w", err)
	}
	if err := insertSamples(ctx, tx, gallery.Identity, gallery.Samples); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit gallery: %w", err)
	}

	logging.Debugf("Saved gallery in postgres for identity: %s (%d samples)", gallery.Identity, len(gallery.Samples))
	return nil
}

func insertSamples(ctx context.Context, tx pgx.Tx, identity string, samples matching.Gallery) error {
	for i, sample := range samples {
		capturedAt := sample.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = time.Now()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO gallery_samples (identity, position, label, record, embedding, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, identity, i, sample.Label, sample.Record, []float64(sample.Embedding), capturedAt)
		if err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}
	return nil
}

// LoadGallery reads an identity's gallery with samples in enrollment order.
func (ps *PostgresStore) LoadGallery(ctx context.Context, identity string) (*IdentityGallery, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}

	gallery := IdentityGallery{Identity: identity}
	err := ps.conn.QueryRow(ctx, `
		SELECT enrolled_at, updated_at, metadata FROM identities WHERE identity = $1
	`, identity).Scan(&gallery.EnrolledAt, &gallery.UpdatedAt, &gallery.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	rows, err := ps.conn.Query(ctx, `
		SELECT label, record, embedding, captured_at
		FROM gallery_samples WHERE identity = $1 ORDER BY position
	`, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sample := matching.EnrolledSample{Identity: identity}
		var record features.Record
		var emb []float64
		if err := rows.Scan(&sample.Label, &record, &emb, &sample.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample.Record = record
		sample.Embedding = embedding.Vector(emb)
		gallery.Samples = append(gallery.Samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	return &gallery, nil
}

// DeleteGallery removes an identity and its samples.
func (ps *PostgresStore) DeleteGallery(ctx context.Context, identity string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}

	tag, err := ps.conn.Exec(ctx, "DELETE FROM identities WHERE identity = $1", identity)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}

	logging.Infof("Deleted postgres gallery for identity: %s", identity)
	return nil
}

// ListIdentities returns all enrolled identity names.
func (ps *PostgresStore) ListIdentities(ctx context.Context) ([]string, error) {
	rows, err := ps.conn.Query(ctx, "SELECT identity FROM identities ORDER BY identity")
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []string
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	return identities, nil
}

// Exists reports whether an identity is enrolled.
func (ps *PostgresStore) Exists(ctx context.Context, identity string) (bool, error) {
	if err := validateIdentity(identity); err != nil {
		return false, err
	}

	var exists bool
	err := ps.conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM identities WHERE identity = $1)", identity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check identity: %w", err)
	}
	return exists, nil
}

// AddSample appends one sample after the identity's current last position.
func (ps *PostgresStore) AddSample(ctx context.Context, identity string, sample matching.EnrolledSample) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}

	tx, err := ps.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM identities WHERE identity = $1)", identity).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check identity: %w", err)
	}
	if !exists {
		return ErrIdentityNotFound
	}

	capturedAt := sample.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO gallery_samples (identity, position, label, record, embedding, captured_at)
		SELECT $1, COALESCE(MAX(position) + 1, 0), $2, $3, $4, $5
		FROM gallery_samples WHERE identity = $1
	`, identity, sample.Label, sample.Record, []float64(sample.Embedding), capturedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	if _, err := tx.Exec(ctx, "UPDATE identities SET updated_at = NOW() WHERE identity = $1", identity); err != nil {
		return fmt.Errorf("failed to touch identity: %w", err)
	}

	return tx.Commit(ctx)
}

// Close terminates the database connection.
func (ps *PostgresStore) Close() error {
	return ps.conn.Close(context.Background())
}
