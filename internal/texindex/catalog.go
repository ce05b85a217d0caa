package texindex

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Catalog is a SQLite inventory of every scanned texture file, written in
// large batched transactions so a scan over hundreds of thousands of files
// stays fast. The audit pass queries it instead of stat-ing the filesystem
// per candidate.
type Catalog struct {
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	batchSize int
	count     int
	mu        sync.Mutex
}

// OpenCatalog opens (or creates) the catalog database and prepares it for
// bulk insert.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	// Bulk-insert tuning; the catalog is rebuildable, durability is cheap
	// to give up here.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS textures (
		path  TEXT PRIMARY KEY,
		tier  TEXT NOT NULL,
		name  TEXT NOT NULL,
		hash  TEXT,
		size  INTEGER NOT NULL,
		mtime INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tier_hash ON textures(tier, hash);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	c := &Catalog{db: db, batchSize: 10000}
	if err := c.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) beginTx() error {
	var err error
	c.tx, err = c.db.Begin()
	if err != nil {
		return err
	}
	c.stmt, err = c.tx.Prepare(`
		INSERT OR REPLACE INTO textures (path, tier, name, hash, size, mtime)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	return err
}

func (c *Catalog) commitTx() error {
	if c.stmt != nil {
		_ = c.stmt.Close()
	}
	return c.tx.Commit()
}

// Add records one texture file, committing a batch when it fills.
func (c *Catalog) Add(f File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hash any
	if f.Hash != "" {
		hash = f.Hash
	}
	if _, err := c.stmt.Exec(f.Path, f.Tier, f.Name, hash, f.Size, f.MtimeUnix); err != nil {
		return fmt.Errorf("catalog insert %s: %w", f.Path, err)
	}
	c.count++
	if c.count >= c.batchSize {
		if err := c.commitTx(); err != nil {
			return err
		}
		c.count = 0
		return c.beginTx()
	}
	return nil
}

// ClearTier drops a tier's rows before rescanning it, so deleted files don't
// linger in the catalog.
func (c *Catalog) ClearTier(tier string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.tx.Exec("DELETE FROM textures WHERE tier = ?", tier)
	return err
}

// Has reports whether a candidate path exists in the catalog. Reads go
// through the open transaction so a same-run scan is visible.
func (c *Catalog) Has(path string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var one int
	err := c.tx.QueryRow("SELECT 1 FROM textures WHERE path = ?", path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close flushes the open batch and closes the database.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.commitTx(); err != nil {
		_ = c.db.Close()
		return err
	}
	return c.db.Close()
}
