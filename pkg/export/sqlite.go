package export

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/cograph/pkg/interaction"
	"github.com/vanderheijden86/cograph/pkg/version"
)

// SQLiteSchemaVersion is stored in the meta table of every exported file.
const SQLiteSchemaVersion = 1

// SQLiteRenderer writes each frame to a SQLite database with nodes, edges
// and communities tables, for querying the network with SQL or sql.js.
type SQLiteRenderer struct {
	fileRenderer
}

var sqliteSchema = []string{
	`CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE nodes (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		size REAL NOT NULL,
		color TEXT NOT NULL,
		border_color TEXT,
		is_category_marker INTEGER NOT NULL DEFAULT 0,
		tier TEXT,
		degree_centrality REAL,
		eigenvector REAL,
		community INTEGER,
		muted INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE edges (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		size REAL NOT NULL,
		weight REAL NOT NULL,
		color TEXT NOT NULL,
		hidden INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (source) REFERENCES nodes(id),
		FOREIGN KEY (target) REFERENCES nodes(id)
	)`,
	`CREATE INDEX idx_edges_source ON edges(source)`,
	`CREATE INDEX idx_edges_target ON edges(target)`,
	`CREATE INDEX idx_nodes_community ON nodes(community)`,
	`CREATE VIEW communities AS
		SELECT community AS id,
			COUNT(*) AS size,
			MIN(color) AS color,
			(SELECT COALESCE(SUM(e.size), 0) FROM edges e
				JOIN nodes s ON s.id = e.source
				JOIN nodes t ON t.id = e.target
				WHERE s.community = n.community AND t.community = n.community) AS internal_weight
		FROM nodes n
		WHERE community IS NOT NULL
		GROUP BY community`,
}

// Render writes the database for s to the output path. The file is built
// next to the destination and renamed into place.
func (r *SQLiteRenderer) Render(s interaction.Styler) error {
	done, err := r.begin()
	if err != nil {
		return err
	}
	defer done()

	tmp := r.opts.Path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale database: %w", err)
	}
	if err := writeSQLite(tmp, BuildDocument(s, r.opts.Title)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return renameInto(tmp, r.opts.Path)
}

func writeSQLite(path string, doc Document) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMeta(tx, doc); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := insertNodes(tx, doc.Nodes); err != nil {
		return fmt.Errorf("insert nodes: %w", err)
	}
	if err := insertEdges(tx, doc.Edges); err != nil {
		return fmt.Errorf("insert edges: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertMeta(tx *sql.Tx, doc Document) error {
	stmt, err := tx.Prepare(`INSERT INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	meta := [][2]string{
		{"schema_version", strconv.Itoa(SQLiteSchemaVersion)},
		{"generator", "cograph " + version.Version},
		{"exported_at", time.Now().UTC().Format(time.RFC3339)},
		{"title", doc.Attributes.Title},
		{"focus", doc.Attributes.Focus},
		{"node_count", strconv.Itoa(doc.Attributes.Nodes)},
		{"edge_count", strconv.Itoa(doc.Attributes.Edges)},
		{"visible_edge_count", strconv.Itoa(doc.Attributes.Visible)},
	}
	for _, kv := range meta {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func insertNodes(tx *sql.Tx, nodes []NodeEntry) error {
	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, label, x, y, size, color, border_color, is_category_marker,
			tier, degree_centrality, eigenvector, community, muted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		a := n.Attributes
		var eig sql.NullFloat64
		if a.Eigenvector.Available {
			eig = sql.NullFloat64{Float64: a.Eigenvector.Value, Valid: true}
		}
		if _, err := stmt.Exec(
			n.Key, a.Label, a.X, a.Y, a.Size, a.Color,
			nullString(a.BorderColor), a.IsCategoryMarker, nullString(a.Tier),
			a.DegreeCentrality, eig, a.Community, a.Muted,
		); err != nil {
			return fmt.Errorf("node %s: %w", n.Key, err)
		}
	}
	return nil
}

func insertEdges(tx *sql.Tx, edges []EdgeEntry) error {
	stmt, err := tx.Prepare(`
		INSERT INTO edges (id, source, target, size, weight, color, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range edges {
		a := e.Attributes
		if _, err := stmt.Exec(e.Key, e.Source, e.Target, a.Size, a.Weight, a.Color, a.Hidden); err != nil {
			return fmt.Errorf("edge %s: %w", e.Key, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
