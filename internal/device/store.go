package device

import (
	"context"
	"database/sql"
	"fmt"
)

// Gateway is the persistence seam between the fleet and durable storage.
// Implementations must be safe for concurrent use: metadata writes arrive
// from API handlers while reading inserts arrive from every device
// goroutine at once.
//
// All methods wrap storage failures in ErrPersistence.
type Gateway interface {
	// InsertSensorMetadata records a sensor's durable description. The
	// insert is idempotent on name: re-inserting an existing sensor is a
	// silent no-op, which is what makes restart replay safe.
	InsertSensorMetadata(ctx context.Context, meta SensorMetadata) error

	// InsertSwitchMetadata records a switch's durable description,
	// idempotent on name.
	InsertSwitchMetadata(ctx context.Context, meta SwitchMetadata) error

	// InsertSensorReading appends one production cycle's reading.
	InsertSensorReading(ctx context.Context, name string, r Reading) error

	// InsertSwitchReading appends one switch state change.
	InsertSwitchReading(ctx context.Context, name string, st SwitchState) error

	// ListSensorMetadata returns every persisted sensor description.
	ListSensorMetadata(ctx context.Context) ([]SensorMetadata, error)

	// ListSwitchMetadata returns every persisted switch description.
	ListSwitchMetadata(ctx context.Context) ([]SwitchMetadata, error)

	// DeleteDevice removes the named device's metadata and readings,
	// whichever tables they live in, atomically.
	DeleteDevice(ctx context.Context, name string) error
}

// SQLiteStore implements Gateway over a SQLite handle. The schema is owned
// by the migrations package; the store assumes it is already applied.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// InsertSensorMetadata implements Gateway. INSERT OR IGNORE gives the
// idempotency restart replay relies on.
func (s *SQLiteStore) InsertSensorMetadata(ctx context.Context, meta SensorMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sensors_metadata (name, min_data, max_data, sample_rate)
		VALUES (?, ?, ?, ?)
	`, meta.Name, meta.Min, meta.Max, meta.SampleRate)
	if err != nil {
		return fmt.Errorf("%w: inserting sensor metadata %q: %w", ErrPersistence, meta.Name, err)
	}
	return nil
}

// InsertSwitchMetadata implements Gateway.
func (s *SQLiteStore) InsertSwitchMetadata(ctx context.Context, meta SwitchMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO switches_metadata (name, type)
		VALUES (?, ?)
	`, meta.Name, string(meta.Kind))
	if err != nil {
		return fmt.Errorf("%w: inserting switch metadata %q: %w", ErrPersistence, meta.Name, err)
	}
	return nil
}

// InsertSensorReading implements Gateway. Missing and faulted readings are
// stored as-is (NULL / sentinel) so the history shows the outage.
func (s *SQLiteStore) InsertSensorReading(ctx context.Context, name string, r Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sensors_live_data (name, value, prev_value, timestamp)
		VALUES (?, ?, ?, ?)
	`, name, nullable(r.Value), nullable(r.PrevValue), r.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: inserting reading for sensor %q: %w", ErrPersistence, name, err)
	}
	return nil
}

// InsertSwitchReading implements Gateway.
func (s *SQLiteStore) InsertSwitchReading(ctx context.Context, name string, st SwitchState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO switches_live_data (name, value, timestamp)
		VALUES (?, ?, ?)
	`, name, st.On, st.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: inserting state for switch %q: %w", ErrPersistence, name, err)
	}
	return nil
}

// ListSensorMetadata implements Gateway.
func (s *SQLiteStore) ListSensorMetadata(ctx context.Context) ([]SensorMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, min_data, max_data, sample_rate
		FROM sensors_metadata
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sensor metadata: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []SensorMetadata
	for rows.Next() {
		var meta SensorMetadata
		if err := rows.Scan(&meta.Name, &meta.Min, &meta.Max, &meta.SampleRate); err != nil {
			return nil, fmt.Errorf("%w: scanning sensor metadata: %w", ErrPersistence, err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing sensor metadata: %w", ErrPersistence, err)
	}
	return out, nil
}

// ListSwitchMetadata implements Gateway.
func (s *SQLiteStore) ListSwitchMetadata(ctx context.Context) ([]SwitchMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type
		FROM switches_metadata
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing switch metadata: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []SwitchMetadata
	for rows.Next() {
		var meta SwitchMetadata
		var kind string
		if err := rows.Scan(&meta.Name, &kind); err != nil {
			return nil, fmt.Errorf("%w: scanning switch metadata: %w", ErrPersistence, err)
		}
		meta.Kind = Kind(kind)
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing switch metadata: %w", ErrPersistence, err)
	}
	return out, nil
}

// DeleteDevice implements Gateway. All four tables are swept in one
// transaction; deleting a name with no rows anywhere is a no-op.
func (s *SQLiteStore) DeleteDevice(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: deleting device %q: %w", ErrPersistence, name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{
		`DELETE FROM sensors_live_data WHERE name = ?`,
		`DELETE FROM sensors_metadata WHERE name = ?`,
		`DELETE FROM switches_live_data WHERE name = ?`,
		`DELETE FROM switches_metadata WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return fmt.Errorf("%w: deleting device %q: %w", ErrPersistence, name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: deleting device %q: %w", ErrPersistence, name, err)
	}
	return nil
}

// nullable maps an optional float to its SQL representation.
func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
