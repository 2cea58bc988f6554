package store

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"recurse.com/niceties/internal/directory"
)

type SQLiteStore struct {
	db       *sql.DB
	cacheTTL time.Duration // 0 means entries never expire
}

func NewSQLiteStore(dataSourceName string, cacheTTL time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, cacheTTL: cacheTTL}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY, -- directory person id, not autoincrement
        anonymous_by_default BOOLEAN DEFAULT FALSE,
        faculty BOOLEAN DEFAULT FALSE,
        admin BOOLEAN DEFAULT FALSE,
        random_seed TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS profiles (
        id INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        first_name TEXT,
        last_name TEXT,
        avatar_url TEXT,
        bio TEXT,
        interests TEXT,
        before_rc TEXT,
        during_rc TEXT
    );

    CREATE TABLE IF NOT EXISTS stints (
        id INTEGER PRIMARY KEY,
        profile_id INTEGER NOT NULL,
        type TEXT NOT NULL,
        start_date TEXT,
        end_date TEXT,
        title TEXT,
        FOREIGN KEY (profile_id) REFERENCES profiles (id)
    );

    CREATE TABLE IF NOT EXISTS niceties (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        author_id INTEGER NOT NULL,
        target_id INTEGER NOT NULL,
        anonymous BOOLEAN DEFAULT FALSE,
        text TEXT,
        no_read BOOLEAN DEFAULT FALSE,
        faculty_reviewed BOOLEAN DEFAULT FALSE,
        end_date DATETIME NOT NULL,
        date_updated TEXT,
        UNIQUE (author_id, target_id)
    );

    CREATE TABLE IF NOT EXISTS site_settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS cache (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        last_updated DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) GetUser(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, anonymous_by_default, faculty, admin, random_seed, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.AnonymousByDefault, &user.Faculty, &user.Admin, &user.RandomSeed, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(id int64, faculty bool) (*User, error) {
	seed := uuid.NewString()
	_, err := s.db.Exec("INSERT INTO users (id, faculty, random_seed) VALUES (?, ?, ?)", id, faculty, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return s.GetUser(id)
}

// GetOrCreateUser provisions a user row the first time a directory
// person authenticates. The faculty flag comes from the directory.
func (s *SQLiteStore) GetOrCreateUser(id int64, faculty bool) (*User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	return s.CreateUser(id, faculty)
}

// SetUserAdmin grants or revokes the admin role. There is no API
// surface for this; it is an operator action.
func (s *SQLiteStore) SetUserAdmin(id int64, admin bool) error {
	res, err := s.db.Exec("UPDATE users SET admin = ? WHERE id = ?", admin, id)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user not found, admin flag not updated")
	}
	return nil
}

// Nicety methods

// SaveNicety locates an existing row by (author, target, end date) and
// overwrites it, or inserts a new one. The UNIQUE (author_id,
// target_id) constraint backs the one-row-per-pair invariant.
func (s *SQLiteStore) SaveNicety(n *Nicety) error {
	var existingID int64
	err := s.db.QueryRow("SELECT id FROM niceties WHERE author_id = ? AND target_id = ? AND end_date = ?",
		n.AuthorID, n.TargetID, n.EndDate).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to query nicety: %w", err)
	}

	if err == sql.ErrNoRows {
		res, err := s.db.Exec(
			"INSERT INTO niceties (author_id, target_id, anonymous, text, no_read, faculty_reviewed, end_date, date_updated) VALUES (?, ?, ?, ?, ?, FALSE, ?, ?)",
			n.AuthorID, n.TargetID, n.Anonymous, textValue(n.Text), n.NoRead, n.EndDate, n.DateUpdated)
		if err != nil {
			return fmt.Errorf("failed to insert nicety: %w", err)
		}
		n.ID, _ = res.LastInsertId()
		return nil
	}

	_, err = s.db.Exec(
		"UPDATE niceties SET anonymous = ?, text = ?, no_read = ?, faculty_reviewed = FALSE, date_updated = ? WHERE id = ?",
		n.Anonymous, textValue(n.Text), n.NoRead, n.DateUpdated, existingID)
	if err != nil {
		return fmt.Errorf("failed to update nicety: %w", err)
	}
	n.ID = existingID
	return nil
}

// OverwriteNicetyText force-sets the text of an existing row regardless
// of end date. Admin-only path.
func (s *SQLiteStore) OverwriteNicetyText(authorID, targetID int64, text string) error {
	res, err := s.db.Exec("UPDATE niceties SET text = ? WHERE author_id = ? AND target_id = ?", text, authorID, targetID)
	if err != nil {
		return fmt.Errorf("failed to overwrite nicety text: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("nicety not found, text not updated")
	}
	return nil
}

// NicetiesByAuthorPending returns the author's outgoing niceties whose
// end date has not yet passed.
func (s *SQLiteStore) NicetiesByAuthorPending(authorID int64, now time.Time) ([]Nicety, error) {
	return s.queryNiceties("SELECT id, author_id, target_id, anonymous, text, no_read, faculty_reviewed, end_date, date_updated FROM niceties WHERE author_id = ? AND end_date > ?", authorID, now)
}

// NicetiesRevealableForTarget returns niceties addressed to the target
// whose end date passed more than one day ago (the reveal grace
// period).
func (s *SQLiteStore) NicetiesRevealableForTarget(targetID int64, now time.Time) ([]Nicety, error) {
	cutoff := now.AddDate(0, 0, -1) // end_date + 1 day < now
	return s.queryNiceties("SELECT id, author_id, target_id, anonymous, text, no_read, faculty_reviewed, end_date, date_updated FROM niceties WHERE target_id = ? AND end_date < ?", targetID, cutoff)
}

// AllNiceties returns every row ordered by target id, for the admin
// grouped-by-recipient view.
func (s *SQLiteStore) AllNiceties() ([]Nicety, error) {
	return s.queryNiceties("SELECT id, author_id, target_id, anonymous, text, no_read, faculty_reviewed, end_date, date_updated FROM niceties ORDER BY target_id")
}

func (s *SQLiteStore) queryNiceties(query string, args ...any) ([]Nicety, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query niceties: %w", err)
	}
	defer rows.Close()

	var niceties []Nicety
	for rows.Next() {
		var n Nicety
		var text sql.NullString
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.TargetID, &n.Anonymous, &text, &n.NoRead, &n.FacultyReviewed, &n.EndDate, &n.DateUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan nicety row: %w", err)
		}
		if text.Valid {
			n.Text = &text.String
		}
		niceties = append(niceties, n)
	}
	return niceties, rows.Err()
}

func textValue(text *string) any {
	if text == nil {
		return nil
	}
	return *text
}

// Site setting methods

func (s *SQLiteStore) GetSetting(key string) (*SiteSetting, error) {
	var setting SiteSetting
	err := s.db.QueryRow("SELECT key, value, updated_at FROM site_settings WHERE key = ?", key).
		Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Setting not configured
		}
		return nil, fmt.Errorf("failed to query setting: %w", err)
	}
	return &setting, nil
}

func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO site_settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AllSettings() ([]SiteSetting, error) {
	rows, err := s.db.Query("SELECT key, value, updated_at FROM site_settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings []SiteSetting
	for rows.Next() {
		var setting SiteSetting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// Profile import methods

func (s *SQLiteStore) HasProfile(id int64) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM profiles WHERE id = ?", id).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query profile: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) insertProfile(p *Profile, stints []Stint) error {
	_, err := s.db.Exec(
		"INSERT INTO profiles (id, name, first_name, last_name, avatar_url, bio, interests, before_rc, during_rc) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.FirstName, p.LastName, p.AvatarURL, p.Bio, p.Interests, p.BeforeRC, p.DuringRC)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	for _, stint := range stints {
		_, err := s.db.Exec(
			"INSERT INTO stints (id, profile_id, type, start_date, end_date, title) VALUES (?, ?, ?, ?, ?, ?)",
			stint.ID, p.ID, stint.Type, stint.StartDate, stint.EndDate, stint.Title)
		if err != nil {
			return fmt.Errorf("failed to insert stint: %w", err)
		}
	}
	return nil
}

// ImportProfiles pages through the directory profile listing and
// inserts every person not already present. Returns the number of
// profiles added.
func (s *SQLiteStore) ImportProfiles(fetch func(limit, offset int) ([]directory.Person, error)) (int, error) {
	const pageSize = 50
	count := 0
	for offset := 0; ; offset += pageSize {
		page, err := fetch(pageSize, offset)
		if err != nil {
			return count, fmt.Errorf("failed to fetch profile page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		for _, p := range page {
			exists, err := s.HasProfile(p.ID)
			if err != nil {
				return count, err
			}
			if exists {
				log.Printf("Skipping: %d", p.ID)
				continue
			}

			profile := Profile{
				ID:        p.ID,
				Name:      strings.TrimSpace(p.FirstName + " " + p.LastName),
				FirstName: p.FirstName,
				LastName:  p.LastName,
				AvatarURL: p.Image,
				Bio:       p.Bio,
				Interests: p.Interests,
				BeforeRC:  p.BeforeRC,
				DuringRC:  p.DuringRC,
			}
			var stints []Stint
			for _, st := range p.Stints {
				stints = append(stints, Stint{
					ID:        st.ID,
					ProfileID: p.ID,
					Type:      st.Type,
					StartDate: st.StartDate,
					EndDate:   st.EndDate,
					Title:     st.Title,
				})
			}
			if err := s.insertProfile(&profile, stints); err != nil {
				return count, err
			}
			log.Printf("Adding: %d, %s, %s", p.ID, p.FirstName, p.LastName)
			count++
		}
	}
	return count, nil
}
