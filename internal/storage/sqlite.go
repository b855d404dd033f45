package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirved/tabscribe/internal/session"
	"github.com/kirved/tabscribe/internal/summarize"
	"github.com/kirved/tabscribe/internal/transcript"
)

// Meeting is one exported pipeline run.
type Meeting struct {
	ID        int64     `json:"id"`
	TabID     int       `json:"tab_id"`
	Platform  string    `json:"platform"`
	StartedAt time.Time `json:"started_at"`
	SavedAt   time.Time `json:"saved_at"`
	Narrative string    `json:"narrative"`
}

// Store persists completed meetings. This is the export path: the live
// per-tab session state never touches disk, only finished bundles do.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the sqlite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "tabscribe.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS meetings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tab_id INTEGER NOT NULL,
			platform TEXT NOT NULL,
			started_at TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			narrative TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		return fmt.Errorf("create meetings table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS utterances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			meeting_id INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			seconds REAL NOT NULL,
			FOREIGN KEY(meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create utterances table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chapters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			meeting_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			start_seconds REAL NOT NULL,
			end_seconds REAL NOT NULL,
			FOREIGN KEY(meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create chapters table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS action_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			meeting_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			assignee TEXT NOT NULL,
			speaker TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			FOREIGN KEY(meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create action_items table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_meetings_started_at ON meetings(started_at)"); err != nil {
		return fmt.Errorf("create meetings index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_utterances_meeting_id ON utterances(meeting_id, seconds)"); err != nil {
		return fmt.Errorf("create utterances index: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveMeeting writes one completed pipeline bundle and returns its id.
func (s *Store) SaveMeeting(res session.PipelineResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save meeting: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(
		`INSERT INTO meetings(tab_id, platform, started_at, saved_at, narrative) VALUES(?, ?, ?, ?, ?)`,
		res.TabID,
		string(res.Platform),
		res.StartedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		res.Summary.Narrative,
	)
	if err != nil {
		return 0, fmt.Errorf("insert meeting: %w", err)
	}

	meetingID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("meeting id: %w", err)
	}

	for _, u := range res.Transcript.Utterances {
		if _, err := tx.Exec(
			`INSERT INTO utterances(meeting_id, speaker, text, seconds) VALUES(?, ?, ?, ?)`,
			meetingID, u.Speaker, u.Text, u.Seconds,
		); err != nil {
			return 0, fmt.Errorf("insert utterance: %w", err)
		}
	}

	for _, ch := range res.Transcript.Chapters {
		if _, err := tx.Exec(
			`INSERT INTO chapters(meeting_id, title, summary, start_seconds, end_seconds) VALUES(?, ?, ?, ?, ?)`,
			meetingID, ch.Title, ch.Summary, ch.StartSeconds, ch.EndSeconds,
		); err != nil {
			return 0, fmt.Errorf("insert chapter: %w", err)
		}
	}

	for _, item := range res.Summary.ActionItems {
		if _, err := tx.Exec(
			`INSERT INTO action_items(meeting_id, text, assignee, speaker, timestamp) VALUES(?, ?, ?, ?, ?)`,
			meetingID, item.Text, item.Assignee, item.Speaker, item.Timestamp,
		); err != nil {
			return 0, fmt.Errorf("insert action item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save meeting: %w", err)
	}
	return meetingID, nil
}

// Meetings lists saved meetings, most recent first.
func (s *Store) Meetings(limit int) ([]Meeting, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, tab_id, platform, started_at, saved_at, narrative
		 FROM meetings ORDER BY saved_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meetings := make([]Meeting, 0, limit)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meeting rows: %w", err)
	}
	return meetings, nil
}

// Meeting loads one saved meeting with its transcript and action items.
func (s *Store) Meeting(id int64) (Meeting, transcript.Transcript, []summarize.ActionItem, error) {
	row := s.db.QueryRow(
		`SELECT id, tab_id, platform, started_at, saved_at, narrative FROM meetings WHERE id = ?`, id,
	)
	meeting, err := scanMeeting(row)
	if err != nil {
		return Meeting{}, transcript.Transcript{}, nil, err
	}

	tr := transcript.Transcript{
		Utterances: make([]transcript.Utterance, 0, 32),
		Chapters:   make([]transcript.Chapter, 0, 8),
	}

	uRows, err := s.db.Query(
		`SELECT speaker, text, seconds FROM utterances WHERE meeting_id = ? ORDER BY seconds ASC, id ASC`, id,
	)
	if err != nil {
		return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("query utterances for meeting %d: %w", id, err)
	}
	defer func() { _ = uRows.Close() }()
	for uRows.Next() {
		var u transcript.Utterance
		if err := uRows.Scan(&u.Speaker, &u.Text, &u.Seconds); err != nil {
			return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("scan utterance for meeting %d: %w", id, err)
		}
		tr.Utterances = append(tr.Utterances, u)
	}
	if err := uRows.Err(); err != nil {
		return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("iterate utterance rows: %w", err)
	}

	cRows, err := s.db.Query(
		`SELECT title, summary, start_seconds, end_seconds FROM chapters WHERE meeting_id = ? ORDER BY start_seconds ASC, id ASC`, id,
	)
	if err != nil {
		return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("query chapters for meeting %d: %w", id, err)
	}
	defer func() { _ = cRows.Close() }()
	for cRows.Next() {
		var ch transcript.Chapter
		if err := cRows.Scan(&ch.Title, &ch.Summary, &ch.StartSeconds, &ch.EndSeconds); err != nil {
			return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("scan chapter for meeting %d: %w", id, err)
		}
		tr.Chapters = append(tr.Chapters, ch)
	}
	if err := cRows.Err(); err != nil {
		return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("iterate chapter rows: %w", err)
	}

	aRows, err := s.db.Query(
		`SELECT text, assignee, speaker, timestamp FROM action_items WHERE meeting_id = ? ORDER BY id ASC`, id,
	)
	if err != nil {
		return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("query action items for meeting %d: %w", id, err)
	}
	defer func() { _ = aRows.Close() }()

	items := make([]summarize.ActionItem, 0, 8)
	for aRows.Next() {
		var item summarize.ActionItem
		if err := aRows.Scan(&item.Text, &item.Assignee, &item.Speaker, &item.Timestamp); err != nil {
			return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("scan action item for meeting %d: %w", id, err)
		}
		items = append(items, item)
	}
	if err := aRows.Err(); err != nil {
		return Meeting{}, transcript.Transcript{}, nil, fmt.Errorf("iterate action item rows: %w", err)
	}

	return meeting, tr, items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (Meeting, error) {
	var m Meeting
	var startedAt, savedAt string
	if err := row.Scan(&m.ID, &m.TabID, &m.Platform, &startedAt, &savedAt, &m.Narrative); err != nil {
		return Meeting{}, fmt.Errorf("scan meeting: %w", err)
	}

	parsedStart, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Meeting{}, fmt.Errorf("parse meeting started_at: %w", err)
	}
	m.StartedAt = parsedStart

	parsedSaved, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return Meeting{}, fmt.Errorf("parse meeting saved_at: %w", err)
	}
	m.SavedAt = parsedSaved

	return m, nil
}
