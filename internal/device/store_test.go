package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB opens an in-memory database with the live schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE sensors_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		min_data REAL NOT NULL,
		max_data REAL NOT NULL,
		sample_rate INTEGER NOT NULL
	);
	CREATE TABLE switches_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL
	);
	CREATE TABLE sensors_live_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		value REAL,
		prev_value REAL,
		timestamp INTEGER NOT NULL
	);
	CREATE TABLE switches_live_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		value BOOLEAN NOT NULL,
		timestamp INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestSQLiteStoreSensorMetadataIdempotent(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	meta := SensorMetadata{Name: "temp-lounge", Min: 0, Max: 100, SampleRate: 2}
	if err := store.InsertSensorMetadata(ctx, meta); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Replay after restart hits the same row: silent no-op, original kept.
	again := meta
	again.SampleRate = 99
	if err := store.InsertSensorMetadata(ctx, again); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	listed, err := store.ListSensorMetadata(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("got %d rows, want 1", len(listed))
	}
	if listed[0] != meta {
		t.Fatalf("got %+v, want %+v", listed[0], meta)
	}
}

func TestSQLiteStoreSwitchMetadata(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	for _, meta := range []SwitchMetadata{
		{Name: "relay-hall", Kind: KindSwitch},
		{Name: "door-front", Kind: KindPassiveSwitch},
		{Name: "relay-hall", Kind: KindSwitch}, // duplicate
	} {
		if err := store.InsertSwitchMetadata(ctx, meta); err != nil {
			t.Fatalf("insert %q: %v", meta.Name, err)
		}
	}

	listed, err := store.ListSwitchMetadata(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d rows, want 2", len(listed))
	}
	if listed[0].Name != "door-front" || listed[0].Kind != KindPassiveSwitch {
		t.Errorf("row 0 = %+v", listed[0])
	}
	if listed[1].Name != "relay-hall" || listed[1].Kind != KindSwitch {
		t.Errorf("row 1 = %+v", listed[1])
	}
}

func TestSQLiteStoreReadings(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	readings := []Reading{
		{Value: float64Ptr(21.5), PrevValue: nil, Timestamp: 1000},
		{Value: nil, PrevValue: float64Ptr(21.5), Timestamp: 1002},
		{Value: float64Ptr(FaultValue), PrevValue: float64Ptr(21.5), Timestamp: 1004},
	}
	for i, r := range readings {
		if err := store.InsertSensorReading(ctx, "temp-lounge", r); err != nil {
			t.Fatalf("insert reading %d: %v", i, err)
		}
	}
	if err := store.InsertSwitchReading(ctx, "relay-hall", SwitchState{On: true, Timestamp: 1001}); err != nil {
		t.Fatalf("insert switch state: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sensors_live_data WHERE name = ?`, "temp-lounge").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("sensor rows = %d, want 3", count)
	}

	// The missing reading must land as NULL, not zero.
	var nullCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sensors_live_data WHERE value IS NULL`).Scan(&nullCount); err != nil {
		t.Fatalf("null count: %v", err)
	}
	if nullCount != 1 {
		t.Fatalf("NULL value rows = %d, want 1", nullCount)
	}
}

func TestSQLiteStoreDeleteDevice(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	if err := store.InsertSensorMetadata(ctx, SensorMetadata{Name: "temp-lounge", Min: 0, Max: 100, SampleRate: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertSensorReading(ctx, "temp-lounge", Reading{Value: float64Ptr(50), Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertSwitchMetadata(ctx, SwitchMetadata{Name: "relay-hall", Kind: KindSwitch}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteDevice(ctx, "temp-lounge"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sensors, err := store.ListSensorMetadata(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sensors) != 0 {
		t.Fatalf("sensor metadata survived delete: %+v", sensors)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sensors_live_data`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Fatalf("sensor readings survived delete: %d rows", rows)
	}

	// Other devices untouched; deleting the absent name again is a no-op.
	switches, err := store.ListSwitchMetadata(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(switches) != 1 {
		t.Fatalf("unrelated switch metadata affected: %+v", switches)
	}
	if err := store.DeleteDevice(ctx, "temp-lounge"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestSQLiteStoreWrapsPersistenceErrors(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	db.Close() // every statement now fails

	err := store.InsertSensorMetadata(context.Background(), SensorMetadata{Name: "x", Max: 1, SampleRate: 1})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
}
