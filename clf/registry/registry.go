// Package registry records saved models and their evaluations in a libsql
// database.
package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/textclf/clf"
	"github.com/ZanzyTHEbar/textclf/clf/metrics"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

var logger = internal.GetLogger().With().Str("component", "registry").Logger()

var ErrNotFound = errors.New("registry: record not found")

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Registry is safe for concurrent use.
type Registry struct {
	db *sql.DB
}

// ConnectToDB opens a libsql connection. A bare path is treated as a local
// file and its directory is created.
func ConnectToDB(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, ":") {
		dsn = "file:" + dsn
	}
	if dir, ok := localDir(dsn); ok {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", dsn, err)
	}
	return db, nil
}

// localDir is the directory of a file: DSN, query parameters excluded.
func localDir(dsn string) (string, bool) {
	path, ok := strings.CutPrefix(dsn, "file:")
	if !ok {
		return "", false
	}
	path, _, _ = strings.Cut(path, "?")
	return filepath.Dir(path), true
}

// Open connects to dsn and creates the schema if needed.
func Open(dsn string) (*Registry, error) {
	db, err := ConnectToDB(dsn)
	if err != nil {
		return nil, err
	}
	r := &Registry{db: db}
	if err := r.init(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Str("dsn", dsn).Msg("Opened registry")
	return r, nil
}

func (r *Registry) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY UNIQUE,
		name TEXT NOT NULL,
		arch_path TEXT NOT NULL,
		weights_path TEXT NOT NULL,
		saved_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create models table: %w", err)
	}

	_, err = r.db.Exec(`CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY UNIQUE,
		model_id TEXT NOT NULL REFERENCES models(id),
		accuracy REAL NOT NULL,
		precision REAL NOT NULL,
		recall REAL NOT NULL,
		f_score REAL NOT NULL,
		report TEXT,
		evaluated_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create evaluations table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// AddModel registers a saved model pair and returns its record.
func (r *Registry) AddModel(name, archPath, weightsPath string) (*ModelRecord, error) {
	rec := ModelRecord{
		ID:          uuid.New(),
		Name:        name,
		ArchPath:    archPath,
		WeightsPath: weightsPath,
		SavedAt:     time.Now().UTC(),
	}
	result, err := r.db.Exec("INSERT INTO models (id, name, arch_path, weights_path, saved_at) VALUES (?, ?, ?, ?, ?)",
		rec.ID.String(), rec.Name, rec.ArchPath, rec.WeightsPath, rec.SavedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert model: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n != 1 {
		return nil, fmt.Errorf("expected 1 row affected, got %d", n)
	}

	logger.Debug().Str("id", rec.ID.String()).Str("name", name).Msg("Registered model")
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(s scanner) (*ModelRecord, error) {
	var rec ModelRecord
	var id, savedAt string
	if err := s.Scan(&id, &rec.Name, &rec.ArchPath, &rec.WeightsPath, &savedAt); err != nil {
		return nil, err
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse model id: %w", err)
	}
	if rec.SavedAt, err = time.Parse(timeLayout, savedAt); err != nil {
		return nil, fmt.Errorf("failed to parse model timestamp: %w", err)
	}
	return &rec, nil
}

// GetModel returns the model registered under id.
func (r *Registry) GetModel(id uuid.UUID) (*ModelRecord, error) {
	row := r.db.QueryRow("SELECT id, name, arch_path, weights_path, saved_at FROM models WHERE id = ?", id.String())
	rec, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan model: %w", err)
	}
	return rec, nil
}

// ListModels returns every registered model, oldest first.
func (r *Registry) ListModels() ([]ModelRecord, error) {
	rows, err := r.db.Query("SELECT id, name, arch_path, weights_path, saved_at FROM models ORDER BY saved_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []ModelRecord
	for rows.Next() {
		rec, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return models, nil
}

// DeleteModel removes a model and its evaluations.
func (r *Registry) DeleteModel(id uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM evaluations WHERE model_id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete evaluations: %w", err)
	}
	result, err := tx.Exec("DELETE FROM models WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecordEvaluation stores report against an existing model.
func (r *Registry) RecordEvaluation(modelID uuid.UUID, report *metrics.Report) (*EvaluationRecord, error) {
	if report == nil {
		return nil, errors.New("nil report")
	}
	if _, err := r.GetModel(modelID); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("error marshalling report: %w", err)
	}
	rec := EvaluationRecord{
		ID:          uuid.New(),
		ModelID:     modelID,
		Accuracy:    report.Accuracy,
		Precision:   report.Weighted.Precision,
		Recall:      report.Weighted.Recall,
		FScore:      report.Weighted.F1,
		Report:      report,
		EvaluatedAt: time.Now().UTC(),
	}
	_, err = r.db.Exec(`INSERT INTO evaluations (id, model_id, accuracy, precision, recall, f_score, report, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), modelID.String(), rec.Accuracy, rec.Precision, rec.Recall, rec.FScore,
		string(raw), rec.EvaluatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert evaluation: %w", err)
	}

	logger.Info().
		Str("model", modelID.String()).
		Float64("accuracy", rec.Accuracy).
		Float64("f_score", rec.FScore).
		Msg("Recorded evaluation")
	return &rec, nil
}

func scanEvaluation(s scanner) (*EvaluationRecord, error) {
	var rec EvaluationRecord
	var id, modelID, evaluatedAt string
	var report sql.NullString
	if err := s.Scan(&id, &modelID, &rec.Accuracy, &rec.Precision, &rec.Recall, &rec.FScore, &report, &evaluatedAt); err != nil {
		return nil, err
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation id: %w", err)
	}
	if rec.ModelID, err = uuid.Parse(modelID); err != nil {
		return nil, fmt.Errorf("failed to parse model id: %w", err)
	}
	if rec.EvaluatedAt, err = time.Parse(timeLayout, evaluatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation timestamp: %w", err)
	}
	if report.Valid {
		rec.Report = &metrics.Report{}
		if err := json.Unmarshal([]byte(report.String), rec.Report); err != nil {
			return nil, fmt.Errorf("error unmarshalling report: %w", err)
		}
	}
	return &rec, nil
}

const evaluationColumns = "id, model_id, accuracy, precision, recall, f_score, report, evaluated_at"

// Evaluations returns the evaluations of a model, oldest first.
func (r *Registry) Evaluations(modelID uuid.UUID) ([]EvaluationRecord, error) {
	rows, err := r.db.Query("SELECT "+evaluationColumns+" FROM evaluations WHERE model_id = ? ORDER BY evaluated_at ASC", modelID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []EvaluationRecord
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return evals, nil
}

// BestModel returns the model with the highest weighted F1 and that
// evaluation.
func (r *Registry) BestModel() (*ModelRecord, *EvaluationRecord, error) {
	row := r.db.QueryRow("SELECT " + evaluationColumns + " FROM evaluations ORDER BY f_score DESC, evaluated_at ASC LIMIT 1")
	eval, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: no evaluations", ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}
	m, err := r.GetModel(eval.ModelID)
	if err != nil {
		return nil, nil, err
	}
	return m, eval, nil
}

// Backup copies the database into dir and returns the backup path.
func (r *Registry) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create backup directory: %w", err)
	}
	timestamp := time.Now().Format("20060102_150405.000000")
	backupPath := filepath.Join(dir, fmt.Sprintf("registry_backup_%s.db", timestamp))

	// VACUUM INTO takes a literal, not a bound parameter.
	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := r.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", fmt.Errorf("backup failed: %w", err)
	}

	logger.Info().Str("path", backupPath).Msg("Registry backup created")
	return backupPath, nil
}
