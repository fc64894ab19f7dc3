package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.IsEncrypted

const journalDBName = "sessions.db"

// EncryptedJournal implements domain.SessionJournal using a SQLCipher
// encrypted SQLite database. Encryption keeps the session history out of
// casual reach: the point of the tool is to resist the user's own
// impulse to fudge the record.
type EncryptedJournal struct {
	db     *sql.DB
	dbPath string
}

// OpenJournal opens the journal in dataDir, creating the encryption key
// alongside it on first use.
func OpenJournal(dataDir string) (*EncryptedJournal, error) {
	key, err := NewFileKeyProvider(dataDir).Ensure()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare journal key: %w", err)
	}
	return NewEncryptedJournal(dataDir, key)
}

// NewEncryptedJournal opens (or creates) the encrypted journal database.
// The key is passed to SQLCipher as the PRAGMA key.
func NewEncryptedJournal(dataDir string, key []byte) (*EncryptedJournal, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, journalDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify the key actually decrypts the file before handing it out.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	j := &EncryptedJournal{db: db, dbPath: dbPath}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

func (j *EncryptedJournal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		minutes INTEGER NOT NULL
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append stores one completed blocking session.
func (j *EncryptedJournal) Append(rec domain.SessionRecord) error {
	_, err := j.db.Exec(
		`INSERT INTO sessions (started_at, ended_at, minutes) VALUES (?, ?, ?)`,
		rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(), rec.Minutes,
	)
	return err
}

// All returns every recorded session, oldest first.
func (j *EncryptedJournal) All() ([]domain.SessionRecord, error) {
	rows, err := j.db.Query(
		`SELECT started_at, ended_at, minutes FROM sessions ORDER BY started_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SessionRecord
	for rows.Next() {
		var startedAt, endedAt int64
		var minutes int
		if err := rows.Scan(&startedAt, &endedAt, &minutes); err != nil {
			return nil, err
		}
		records = append(records, domain.SessionRecord{
			StartedAt: time.UnixMilli(startedAt),
			EndedAt:   time.UnixMilli(endedAt),
			Minutes:   minutes,
		})
	}
	return records, rows.Err()
}

// Clear deletes all recorded sessions.
func (j *EncryptedJournal) Clear() error {
	_, err := j.db.Exec(`DELETE FROM sessions`)
	return err
}

// Close releases the database connection.
func (j *EncryptedJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (j *EncryptedJournal) Path() string {
	return j.dbPath
}

var _ domain.SessionJournal = (*EncryptedJournal)(nil)
