package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS grading_runs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		product         TEXT NOT NULL,
		strictness      INTEGER NOT NULL,
		approved_score  INTEGER NOT NULL,
		fda_score       INTEGER NOT NULL,
		ftc_score       INTEGER NOT NULL,
		flagged_count   INTEGER NOT NULL DEFAULT 0,
		matched_count   INTEGER NOT NULL DEFAULT 0,
		overall_summary TEXT DEFAULT '',
		result_json     TEXT NOT NULL,
		llm_model       TEXT DEFAULT '',
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_product ON grading_runs(product);
	CREATE INDEX IF NOT EXISTS idx_runs_date ON grading_runs(created_at);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_messages(session_id);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// GradingRun is one persisted compliance check.
type GradingRun struct {
	ID             int64
	Product        string
	Strictness     int
	Scores         CategoryScores
	FlaggedCount   int
	MatchedCount   int
	OverallSummary string
	ResultJSON     string
	LLMModel       string
	CreatedAt      time.Time
}

func InsertGradingRun(db *sql.DB, run GradingRun) error {
	_, err := db.Exec(
		`INSERT INTO grading_runs
		 (product, strictness, approved_score, fda_score, ftc_score, flagged_count, matched_count, overall_summary, result_json, llm_model)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Product, run.Strictness, run.Scores.Approved, run.Scores.FDA, run.Scores.FTC,
		run.FlaggedCount, run.MatchedCount, run.OverallSummary, run.ResultJSON, run.LLMModel,
	)
	return err
}

func GetRecentRuns(db *sql.DB, product string, limit int) ([]GradingRun, error) {
	rows, err := db.Query(
		`SELECT id, product, strictness, approved_score, fda_score, ftc_score,
		        flagged_count, matched_count, overall_summary, result_json, llm_model, created_at
		 FROM grading_runs
		 WHERE product = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		product, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []GradingRun
	for rows.Next() {
		var r GradingRun
		if err := rows.Scan(
			&r.ID, &r.Product, &r.Strictness, &r.Scores.Approved, &r.Scores.FDA, &r.Scores.FTC,
			&r.FlaggedCount, &r.MatchedCount, &r.OverallSummary, &r.ResultJSON, &r.LLMModel, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func InsertChatMessage(db *sql.DB, sessionID, role, content string) error {
	_, err := db.Exec(
		`INSERT INTO chat_messages (session_id, role, content) VALUES (?, ?, ?)`,
		sessionID, role, content,
	)
	return err
}

func GetChatMessages(db *sql.DB, sessionID string, limit int) ([]ChatTurn, error) {
	rows, err := db.Query(
		`SELECT role, content FROM (
		    SELECT id, role, content FROM chat_messages
		    WHERE session_id = ?
		    ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var t ChatTurn
		if err := rows.Scan(&t.Role, &t.Text); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// GradingStats aggregates persisted runs for one product. Regulatory
// buckets count runs by the lower of the two regulatory scores.
type GradingStats struct {
	TotalRuns     int
	AvgApproved   float64
	AvgFDA        float64
	AvgFTC        float64
	BucketBelow50 int
	Bucket50to70  int
	Bucket70to85  int
	Bucket85Plus  int
}

func GetGradingStats(db *sql.DB, product string, since time.Time) (GradingStats, error) {
	var s GradingStats
	err := db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(AVG(approved_score), 0),
		        COALESCE(AVG(fda_score), 0),
		        COALESCE(AVG(ftc_score), 0),
		        COALESCE(SUM(CASE WHEN min(fda_score, ftc_score) < 50 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN min(fda_score, ftc_score) >= 50 AND min(fda_score, ftc_score) < 70 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN min(fda_score, ftc_score) >= 70 AND min(fda_score, ftc_score) < 85 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN min(fda_score, ftc_score) >= 85 THEN 1 ELSE 0 END), 0)
		 FROM grading_runs WHERE product = ? AND created_at >= ?`,
		product, since.UTC(),
	).Scan(&s.TotalRuns, &s.AvgApproved, &s.AvgFDA, &s.AvgFTC,
		&s.BucketBelow50, &s.Bucket50to70, &s.Bucket70to85, &s.Bucket85Plus)
	return s, err
}
