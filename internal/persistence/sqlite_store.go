// Package persistence stores transcripts, analysis verdicts, and the video
// metadata cache in a local SQLite database, plus one human-readable text
// artifact per transcript.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tmarkov/yt-verdict/internal/transcript"
	"github.com/tmarkov/yt-verdict/pkg/file"
	"github.com/tmarkov/yt-verdict/pkg/log"
)

const titleFilenameLimit = 60

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db             *sql.DB
	transcriptsDir string
	meta           MetadataLookup

	// Guards the exists/delete-if-overwrite/insert sequence so two
	// concurrent saves for the same video cannot produce duplicate
	// "current" rows.
	saveMu sync.Mutex
}

// StoreOption configures a SQLiteStore.
type StoreOption func(*SQLiteStore)

// WithMetadataLookup installs the collaborator used to backfill missing
// title/channel on save.
func WithMetadataLookup(meta MetadataLookup) StoreOption {
	return func(s *SQLiteStore) {
		s.meta = meta
	}
}

// SetMetadataLookup installs the lookup after construction. Needed because
// the lookup service caches through this same store.
func (s *SQLiteStore) SetMetadataLookup(meta MetadataLookup) {
	s.meta = meta
}

func NewSQLiteStore(dbPath string, transcriptsDir string, opts ...StoreOption) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if transcriptsDir != "" {
		if err := os.MkdirAll(transcriptsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcripts directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, transcriptsDir: transcriptsDir}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_transcripts.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Exists reports whether any transcript row is stored for the video.
func (s *SQLiteStore) Exists(ctx context.Context, videoID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM transcripts WHERE video_id = ? LIMIT 1`, videoID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveTranscript persists segments to the text artifact and the database.
// The artifact write is best-effort; durability of the structured record
// dominates. Returns the artifact path and whether a DB insert occurred.
// With overwrite false, an existing record makes this an idempotent no-op
// that leaves both the row and the artifact untouched.
func (s *SQLiteStore) SaveTranscript(
	ctx context.Context,
	segments []transcript.Segment,
	videoID string,
	title string,
	channel string,
	language string,
	overwrite bool,
) (string, bool, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	exists, err := s.Exists(ctx, videoID)
	if err != nil {
		return "", false, transcript.WrapTierError(transcript.TierStore, transcript.KindStorage,
			"existence check failed", err)
	}
	if exists && !overwrite {
		log.Info("Transcript for %s already stored; skipping insert", videoID)
		return s.existingArtifactPath(ctx, videoID), false, nil
	}

	if title == "" || channel == "" {
		autoTitle, autoChannel := s.backfillMetadata(ctx, videoID)
		if title == "" {
			title = autoTitle
		}
		if channel == "" {
			channel = autoChannel
		}
	}
	if title == "" {
		title = fmt.Sprintf("Unknown Title – %s", videoID)
	}
	if channel == "" {
		channel = "Unknown Channel"
	}

	artifactPath := s.writeArtifact(segments, videoID, title)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return artifactPath, false, transcript.WrapTierError(transcript.TierStore, transcript.KindStorage,
			"begin transaction failed", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if exists {
		log.Info("Overwriting stored transcript for %s", videoID)
		if _, err = tx.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID); err != nil {
			return artifactPath, false, transcript.WrapTierError(transcript.TierStore, transcript.KindStorage,
				"deleting prior rows failed", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, video_title, channel_name,
		                          transcript_text, transcript_language, extraction_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		videoID,
		title,
		channel,
		transcript.JoinText(segments),
		language,
		time.Now().UTC(),
	)
	if err != nil {
		return artifactPath, false, transcript.WrapTierError(transcript.TierStore, transcript.KindStorage,
			"transcript insert failed", err)
	}
	if err = tx.Commit(); err != nil {
		return artifactPath, false, transcript.WrapTierError(transcript.TierStore, transcript.KindStorage,
			"commit failed", err)
	}

	log.Info("Transcript stored (video_id=%s, language=%s)", videoID, language)
	return artifactPath, true, nil
}

func (s *SQLiteStore) backfillMetadata(ctx context.Context, videoID string) (string, string) {
	if s.meta == nil {
		return "", ""
	}
	title, channel, err := s.meta.LookupTitleAndChannel(ctx, videoID)
	if err != nil {
		log.Warn("Metadata lookup failed for %s: %v", videoID, err)
		return "", ""
	}
	return title, channel
}

// artifactFilePath derives the deterministic artifact location for a
// video/title pair.
func (s *SQLiteStore) artifactFilePath(videoID string, title string) string {
	if s.transcriptsDir == "" {
		return ""
	}
	name := fmt.Sprintf("transcript_%s_%s.txt",
		file.SanitizeID(videoID),
		file.SanitizeTitle(title, titleFilenameLimit))
	return filepath.Join(s.transcriptsDir, name)
}

// existingArtifactPath recomputes the artifact location of the stored
// current row, so a cache-hit save can hand back the same handle the
// original insert produced.
func (s *SQLiteStore) existingArtifactPath(ctx context.Context, videoID string) string {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT video_title FROM transcripts
		 WHERE video_id = ?
		 ORDER BY extraction_date DESC, id DESC
		 LIMIT 1`,
		videoID,
	).Scan(&title)
	if err != nil {
		log.Warn("Could not resolve stored title for %s: %v", videoID, err)
		return ""
	}
	return s.artifactFilePath(videoID, title)
}

// writeArtifact renders the human-readable transcript file. A failure here
// logs and substitutes an error placeholder rather than aborting the save.
func (s *SQLiteStore) writeArtifact(segments []transcript.Segment, videoID string, title string) string {
	path := s.artifactFilePath(videoID, title)
	if path == "" {
		return ""
	}

	if err := os.WriteFile(path, []byte(transcript.FormatSegments(segments)), 0o644); err != nil {
		log.Error("Failed to write transcript artifact %s: %v", path, err)
		fallback := fmt.Sprintf("Error rendering transcript: %v", err)
		if err := os.WriteFile(path, []byte(fallback), 0o644); err != nil {
			log.Error("Failed to write artifact placeholder %s: %v", path, err)
		}
		return path
	}

	log.Info("Transcript written to %s", path)
	return path
}

// LatestByVideoID returns the most recently extracted transcript row for the
// video, the authoritative "current" record.
func (s *SQLiteStore) LatestByVideoID(ctx context.Context, videoID string) (transcript.Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, video_id, video_title, channel_name, transcript_text, transcript_language, extraction_date
		 FROM transcripts
		 WHERE video_id = ?
		 ORDER BY extraction_date DESC, id DESC
		 LIMIT 1`,
		videoID,
	)
	return scanRecord(row)
}

// ListTranscripts returns recent transcript rows, newest first.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, limit int) ([]transcript.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, video_title, channel_name, transcript_text, transcript_language, extraction_date
		 FROM transcripts
		 ORDER BY extraction_date DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]transcript.Record, 0, limit)
	for rows.Next() {
		var rec transcript.Record
		var language sql.NullString
		if err := rows.Scan(&rec.ID, &rec.VideoID, &rec.Title, &rec.Channel, &rec.Text, &language, &rec.ExtractionDate); err != nil {
			return nil, err
		}
		rec.Language = language.String
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

// SaveVerdict appends an analysis result row for the transcript.
func (s *SQLiteStore) SaveVerdict(ctx context.Context, verdict VerdictRow) error {
	evidenceJSON, err := json.Marshal(verdict.Evidence)
	if err != nil {
		return err
	}
	analysisDate := verdict.AnalysisDate
	if analysisDate.IsZero() {
		analysisDate = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_results (transcript_id, answer, reasoning, evidence, model, tokens_used, analysis_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		verdict.TranscriptID,
		verdict.Answer,
		verdict.Reasoning,
		string(evidenceJSON),
		verdict.Model,
		verdict.TokensUsed,
		analysisDate,
	)
	return err
}

// LatestVerdictForVideo resolves the cached verdict: the latest transcript
// row for the video, then the latest analysis result tied to that row.
func (s *SQLiteStore) LatestVerdictForVideo(ctx context.Context, videoID string) (VerdictRow, bool, error) {
	rec, ok, err := s.LatestByVideoID(ctx, videoID)
	if err != nil || !ok {
		return VerdictRow{}, false, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, transcript_id, answer, reasoning, evidence, model, tokens_used, analysis_date
		 FROM analysis_results
		 WHERE transcript_id = ?
		 ORDER BY analysis_date DESC, id DESC
		 LIMIT 1`,
		rec.ID,
	)

	var v VerdictRow
	var evidenceJSON sql.NullString
	var model sql.NullString
	var tokens sql.NullInt64
	if err := row.Scan(&v.ID, &v.TranscriptID, &v.Answer, &v.Reasoning, &evidenceJSON, &model, &tokens, &v.AnalysisDate); err != nil {
		if err == sql.ErrNoRows {
			return VerdictRow{}, false, nil
		}
		return VerdictRow{}, false, err
	}
	if evidenceJSON.Valid && evidenceJSON.String != "" {
		if err := json.Unmarshal([]byte(evidenceJSON.String), &v.Evidence); err != nil {
			return VerdictRow{}, false, err
		}
	}
	v.Model = model.String
	v.TokensUsed = int(tokens.Int64)
	return v, true, nil
}

// GetVideoMetadata reads the cached title/channel for a video.
func (s *SQLiteStore) GetVideoMetadata(ctx context.Context, videoID string) (string, string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_title, channel_name FROM video_metadata WHERE video_id = ?`, videoID)
	var title, channel sql.NullString
	if err := row.Scan(&title, &channel); err != nil {
		if err == sql.ErrNoRows {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return title.String, channel.String, true, nil
}

// PutVideoMetadata caches a lookup result, even an incomplete one, so the
// next save does not repeat the network call.
func (s *SQLiteStore) PutVideoMetadata(ctx context.Context, videoID string, title string, channel string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO video_metadata (video_id, video_title, channel_name, fetch_date)
		 VALUES (?, ?, ?, ?)`,
		videoID, title, channel, time.Now().UTC())
	return err
}

func scanRecord(row *sql.Row) (transcript.Record, bool, error) {
	var rec transcript.Record
	var language sql.NullString
	err := row.Scan(&rec.ID, &rec.VideoID, &rec.Title, &rec.Channel, &rec.Text, &language, &rec.ExtractionDate)
	if err == sql.ErrNoRows {
		return transcript.Record{}, false, nil
	}
	if err != nil {
		return transcript.Record{}, false, err
	}
	rec.Language = language.String
	return rec, true, nil
}
