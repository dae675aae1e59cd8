// Package store adapts a host drawing database to the core's snapshot-in,
// mutation-batch-out contract. The SQLite store is the reference host: it
// hands out value-copied snapshots and applies each mutation batch in a
// single transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"pid-extract/internal/drawing"
)

// Store is a SQLite-backed drawing database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a drawing database and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open drawing database: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id           TEXT PRIMARY KEY,
	kind         INTEGER NOT NULL,
	min_x        REAL NOT NULL,
	min_y        REAL NOT NULL,
	max_x        REAL NOT NULL,
	max_y        REAL NOT NULL,
	layer        TEXT NOT NULL DEFAULT '',
	length       REAL NOT NULL DEFAULT 0,
	radius       REAL NOT NULL DEFAULT 0,
	closed       INTEGER NOT NULL DEFAULT 0,
	vertex_count INTEGER NOT NULL DEFAULT 0,
	color_index  INTEGER NOT NULL DEFAULT 0,
	text         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS tags (
	text TEXT NOT NULL,
	x    REAL NOT NULL,
	y    REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS zones (
	id    TEXT PRIMARY KEY,
	min_x REAL NOT NULL,
	min_y REAL NOT NULL,
	max_x REAL NOT NULL,
	max_y REAL NOT NULL,
	meta  TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS markers (
	id   TEXT PRIMARY KEY,
	kind INTEGER NOT NULL,
	x    REAL NOT NULL,
	y    REAL NOT NULL,
	size REAL NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create drawing schema: %w", err)
	}
	return nil
}

// Load reads a full value-copied snapshot of the drawing.
func (s *Store) Load(ctx context.Context) (*drawing.Snapshot, error) {
	snap := &drawing.Snapshot{}

	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, min_x, min_y, max_x, max_y,
		layer, length, radius, closed, vertex_count, color_index, text FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e drawing.Entity
		var kind, closed int
		if err := rows.Scan(&e.ID, &kind, &e.Bounds.Min.X, &e.Bounds.Min.Y,
			&e.Bounds.Max.X, &e.Bounds.Max.Y, &e.Layer, &e.Length, &e.Radius,
			&closed, &e.VertexCount, &e.ColorIndex, &e.Text); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Kind = drawing.Kind(kind)
		e.Closed = closed != 0
		snap.Entities = append(snap.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	tagRows, err := s.db.QueryContext(ctx, `SELECT text, x, y FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var t drawing.Tag
		if err := tagRows.Scan(&t.Text, &t.Position.X, &t.Position.Y); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		snap.Tags = append(snap.Tags, t)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	zoneRows, err := s.db.QueryContext(ctx, `SELECT id, min_x, min_y, max_x, max_y, meta FROM zones`)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	defer zoneRows.Close()
	for zoneRows.Next() {
		var z drawing.Zone
		var meta string
		if err := zoneRows.Scan(&z.ID, &z.Bounds.Min.X, &z.Bounds.Min.Y,
			&z.Bounds.Max.X, &z.Bounds.Max.Y, &meta); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		// Unreadable zone metadata degrades to no metadata, never fails the
		// load; Zone.Attributes fills the UNKNOWN defaults.
		if err := json.Unmarshal([]byte(meta), &z.Meta); err != nil {
			z.Meta = nil
		}
		snap.Zones = append(snap.Zones, z)
	}
	if err := zoneRows.Err(); err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}

	markerRows, err := s.db.QueryContext(ctx, `SELECT id, kind, x, y, size FROM markers`)
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}
	defer markerRows.Close()
	for markerRows.Next() {
		var m drawing.Marker
		var kind int
		if err := markerRows.Scan(&m.ID, &kind, &m.Position.X, &m.Position.Y, &m.Size); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		m.Kind = drawing.MarkerKind(kind)
		snap.Markers = append(snap.Markers, m)
	}
	if err := markerRows.Err(); err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}

	return snap, nil
}

// Apply applies a mutation batch in one transaction: either every mutation
// commits or none do.
func (s *Store) Apply(ctx context.Context, muts []drawing.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mutation transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mut := range muts {
		switch mut.Kind {
		case drawing.MutationAddMarker:
			m := mut.Marker
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO markers (id, kind, x, y, size) VALUES (?, ?, ?, ?, ?)`,
				m.ID, int(m.Kind), m.Position.X, m.Position.Y, m.Size); err != nil {
				return fmt.Errorf("add marker %s: %w", m.ID, err)
			}
		case drawing.MutationRemoveMarker:
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM markers WHERE id = ?`, mut.Marker.ID); err != nil {
				return fmt.Errorf("remove marker %s: %w", mut.Marker.ID, err)
			}
		default:
			return fmt.Errorf("unknown mutation kind %d", mut.Kind)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mutation transaction: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the whole drawing content with the snapshot, in one
// transaction. Used by the snapshot import tool.
func (s *Store) SaveSnapshot(ctx context.Context, snap *drawing.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"entities", "tags", "zones", "markers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, e := range snap.Entities {
		closed := 0
		if e.Closed {
			closed = 1
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO entities
			(id, kind, min_x, min_y, max_x, max_y, layer, length, radius, closed, vertex_count, color_index, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, int(e.Kind), e.Bounds.Min.X, e.Bounds.Min.Y, e.Bounds.Max.X, e.Bounds.Max.Y,
			e.Layer, e.Length, e.Radius, closed, e.VertexCount, e.ColorIndex, e.Text); err != nil {
			return fmt.Errorf("insert entity %s: %w", e.ID, err)
		}
	}
	for _, t := range snap.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags (text, x, y) VALUES (?, ?, ?)`,
			t.Text, t.Position.X, t.Position.Y); err != nil {
			return fmt.Errorf("insert tag %q: %w", t.Text, err)
		}
	}
	for _, z := range snap.Zones {
		meta, err := json.Marshal(z.Meta)
		if err != nil {
			return fmt.Errorf("encode zone %s metadata: %w", z.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zones (id, min_x, min_y, max_x, max_y, meta) VALUES (?, ?, ?, ?, ?, ?)`,
			z.ID, z.Bounds.Min.X, z.Bounds.Min.Y, z.Bounds.Max.X, z.Bounds.Max.Y, string(meta)); err != nil {
			return fmt.Errorf("insert zone %s: %w", z.ID, err)
		}
	}
	for _, m := range snap.Markers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO markers (id, kind, x, y, size) VALUES (?, ?, ?, ?, ?)`,
			m.ID, int(m.Kind), m.Position.X, m.Position.Y, m.Size); err != nil {
			return fmt.Errorf("insert marker %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}
