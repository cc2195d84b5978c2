package persistence

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/evolving-kingdom/internal/social"
)

// Archive is the SQLite hall of finished reigns.
type Archive struct {
	conn *sqlx.DB
}

// Reign is one archived game.
type Reign struct {
	ID           string  `db:"id"`
	Player       string  `db:"player"`
	StartedUnix  int64   `db:"started"`
	FinishedUnix int64   `db:"finished"`
	Turns        int     `db:"turns"`
	AverageTrust float64 `db:"average_trust"`
	KingdomState string  `db:"kingdom_state"`
	Review       string  `db:"review"`
}

// Started returns the coronation time.
func (r Reign) Started() time.Time { return time.Unix(r.StartedUnix, 0) }

// Finished returns when the review was written.
func (r Reign) Finished() time.Time { return time.Unix(r.FinishedUnix, 0) }

// ReignFaction is a faction as it ended a reign.
type ReignFaction struct {
	ReignID     string `db:"reign_id"`
	FactionID   string `db:"faction_id"`
	Name        string `db:"name"`
	Personality string `db:"personality"`
	Trust       int    `db:"trust"`
	Evolutions  int    `db:"evolutions"`
}

// OpenArchive opens or creates the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{conn: conn}
	if err := a.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reigns (
		id TEXT PRIMARY KEY,
		player TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		turns INTEGER NOT NULL,
		average_trust REAL NOT NULL,
		kingdom_state TEXT NOT NULL,
		review TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reign_factions (
		reign_id TEXT NOT NULL,
		faction_id TEXT NOT NULL,
		name TEXT NOT NULL,
		personality TEXT NOT NULL,
		trust INTEGER NOT NULL,
		evolutions INTEGER NOT NULL,
		PRIMARY KEY (reign_id, faction_id)
	);

	CREATE TABLE IF NOT EXISTS reign_chronicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reign_id TEXT NOT NULL,
		turns TEXT NOT NULL,
		chronicle TEXT NOT NULL,
		written INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reigns_finished ON reigns(finished);
	CREATE INDEX IF NOT EXISTS idx_chronicles_reign ON reign_chronicles(reign_id);
	`
	_, err := a.conn.Exec(schema)
	return err
}

// SaveReign stores a finished game with its review in one transaction.
// Saving the same game twice replaces the earlier record.
func (a *Archive) SaveReign(st *social.GameState, review string, finished time.Time) error {
	if st == nil {
		return ErrNoGame
	}

	tx, err := a.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"reign_factions", "reign_chronicles"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE reign_id = ?", st.GameID); err != nil {
			return err
		}
	}

	kingdomState := ""
	if n := len(st.Classifications); n > 0 {
		kingdomState = string(st.Classifications[n-1].State)
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO reigns
		(id, player, started, finished, turns, average_trust, kingdom_state, review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.GameID, st.PlayerName, st.GameStarted.Unix(), finished.Unix(),
		len(st.TurnHistory), st.AverageTrust(), kingdomState, review,
	)
	if err != nil {
		return fmt.Errorf("insert reign %s: %w", st.GameID, err)
	}

	for id, f := range st.Factions {
		_, err := tx.Exec(`INSERT INTO reign_factions
			(reign_id, faction_id, name, personality, trust, evolutions)
			VALUES (?, ?, ?, ?, ?, ?)`,
			st.GameID, id, f.Name, f.CurrentPersonality, f.TrustScore, len(f.EvolutionLog),
		)
		if err != nil {
			return fmt.Errorf("insert faction %s: %w", id, err)
		}
	}

	for _, c := range st.Chronicles {
		_, err := tx.Exec(
			"INSERT INTO reign_chronicles (reign_id, turns, chronicle, written) VALUES (?, ?, ?, ?)",
			st.GameID, c.Turns, c.Text, c.Timestamp.Unix(),
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("reign archived", "game_id", st.GameID, "player", st.PlayerName)
	return nil
}

// RecentReigns returns the most recent N reigns, newest first.
func (a *Archive) RecentReigns(limit int) ([]Reign, error) {
	var reigns []Reign
	err := a.conn.Select(&reigns,
		`SELECT id, player, started, finished, turns, average_trust, kingdom_state, review
		 FROM reigns ORDER BY finished DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return reigns, err
}

// ReignFactions returns the final faction standings of a reign.
func (a *Archive) ReignFactions(reignID string) ([]ReignFaction, error) {
	var factions []ReignFaction
	err := a.conn.Select(&factions,
		`SELECT reign_id, faction_id, name, personality, trust, evolutions
		 FROM reign_factions WHERE reign_id = ? ORDER BY faction_id`,
		reignID,
	)
	return factions, err
}

// ChronicleCount returns how many chronicles were archived for a reign.
func (a *Archive) ChronicleCount(reignID string) (int, error) {
	var n int
	err := a.conn.Get(&n, "SELECT COUNT(*) FROM reign_chronicles WHERE reign_id = ?", reignID)
	return n, err
}
