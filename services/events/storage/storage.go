package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eventsonar/backend/services/events/entity"
)

var ErrNotFound = errors.New("not found")

type Storage interface {
	SaveRecording(ctx context.Context, rec *entity.Recording) error
	GetRecording(ctx context.Context, sessionID string) (*entity.Recording, error)
	SaveTranscript(ctx context.Context, t *entity.Transcript) error
	ListEvents(ctx context.Context) ([]entity.Event, error)
	SaveEventDetails(ctx context.Context, d *entity.EventDetails) error
	GetEventDetails(ctx context.Context, eventID string) (*entity.EventDetails, error)
	SaveAudio(ctx context.Context, eventID string, data []byte) error
	GetAudio(ctx context.Context, eventID string) ([]byte, error)
	Close() error
}

type storage struct {
	db *sql.DB
}

func New(dbPath string) (Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS recordings (
		session_id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		mime TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		session_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		event_url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		hosts TEXT,
		date_time TEXT,
		location TEXT,
		image_url TEXT
	);

	CREATE TABLE IF NOT EXISTS event_details (
		event_id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		extracted_content TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audio_files (
		event_id TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	s := &storage{db: db}
	if err := s.seedEvents(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// seedEvents populates the events table on first run so the list and search
// endpoints have something to serve in local development.
func (s *storage) seedEvents() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []entity.Event{
		{
			Title:    "AI Innovators Panel",
			Hosts:    "Future Forge Collective",
			DateTime: "2026-03-14 18:00",
			Location: "Riverside Hall, Austin",
			ImageURL: "https://images.example.com/ai-panel.jpg",
			EventURL: "https://events.example.com/e/ai-panel-42",
		},
		{
			Title:    "Indie Synthwave Night",
			Hosts:    "Neon District",
			DateTime: "2026-03-15 21:00",
			Location: "The Basement, Austin",
			ImageURL: "https://images.example.com/synthwave.jpg",
			EventURL: "https://events.example.com/e/synthwave-night-77",
		},
		{
			Title:    "Founders Brunch & Demos",
			Hosts:    "Startup Sauna",
			DateTime: "2026-03-16 11:00",
			Location: "East Side Commons, Austin",
			ImageURL: "https://images.example.com/founders.jpg",
			EventURL: "https://events.example.com/e/founders-brunch-18",
		},
	}

	for _, ev := range seed {
		_, err := s.db.Exec(
			`INSERT INTO events (event_url, title, hosts, date_time, location, image_url) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.EventURL, ev.Title, ev.Hosts, ev.DateTime, ev.Location, ev.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("failed to seed events: %w", err)
		}
	}

	return nil
}

func (s *storage) SaveRecording(ctx context.Context, rec *entity.Recording) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO recordings (session_id, filename, mime, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Filename, rec.MIME, rec.Data, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	return nil
}

func (s *storage) GetRecording(ctx context.Context, sessionID string) (*entity.Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, filename, mime, data, created_at FROM recordings WHERE session_id = ?`,
		sessionID,
	)

	var rec entity.Recording
	err := row.Scan(&rec.SessionID, &rec.Filename, &rec.MIME, &rec.Data, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	return &rec, nil
}

func (s *storage) SaveTranscript(ctx context.Context, t *entity.Transcript) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (session_id, text, created_at) VALUES (?, ?, ?)`,
		t.SessionID, t.Text, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (s *storage) ListEvents(ctx context.Context) ([]entity.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_url, title, hosts, date_time, location, image_url FROM events ORDER BY date_time`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []entity.Event
	for rows.Next() {
		var ev entity.Event
		if err := rows.Scan(&ev.EventURL, &ev.Title, &ev.Hosts, &ev.DateTime, &ev.Location, &ev.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *storage) SaveEventDetails(ctx context.Context, d *entity.EventDetails) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO event_details (event_id, url, extracted_content, timestamp) VALUES (?, ?, ?, ?)`,
		d.EventID, d.URL, d.ExtractedContent, d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save event details: %w", err)
	}
	return nil
}

func (s *storage) GetEventDetails(ctx context.Context, eventID string) (*entity.EventDetails, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id, url, extracted_content, timestamp FROM event_details WHERE event_id = ?`,
		eventID,
	)

	var d entity.EventDetails
	err := row.Scan(&d.EventID, &d.URL, &d.ExtractedContent, &d.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event details: %w", err)
	}
	return &d, nil
}

func (s *storage) SaveAudio(ctx context.Context, eventID string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audio_files (event_id, data, created_at) VALUES (?, ?, ?)`,
		eventID, data, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}
	return nil
}

func (s *storage) GetAudio(ctx context.Context, eventID string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM audio_files WHERE event_id = ?`, eventID)

	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audio: %w", err)
	}
	return data, nil
}

func (s *storage) Close() error {
	return s.db.Close()
}
