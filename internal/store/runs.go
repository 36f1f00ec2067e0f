package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"brieflow/internal/pipeline"
	"brieflow/internal/services"
)

// Run is the persisted summary of one pipeline run.
type Run struct {
	ID           string
	Status       pipeline.RunStatus
	ErrorMessage string
	Brief        string
	Platform     string
	Creativity   int
	PresetID     string
	PresetKind   string
	TotalTokens  int
	CostUSD      float64
	CreatedAt    time.Time
	RecordedAt   time.Time
}

// StageUsage is the persisted usage of one stage.
type StageUsage struct {
	Stage string
	pipeline.UsageRecord
}

// RunDetail is a run with its stage records, usage, outputs and logs.
type RunDetail struct {
	Run
	Inputs  pipeline.Inputs
	Stages  []pipeline.StageRecord
	Usage   []StageUsage
	Outputs map[string]json.RawMessage
	Logs    []string
}

// RecordRun persists a finished run, replacing any previous copy.
func (s *Store) RecordRun(ctx context.Context, rc *pipeline.Context) error {
	if rc == nil {
		return errors.New("record run: nil context")
	}
	inputsJSON, err := json.Marshal(rc.Inputs)
	if err != nil {
		return fmt.Errorf("record run: encode inputs: %w", err)
	}
	outputsJSON, err := json.Marshal(runOutputs(rc))
	if err != nil {
		return fmt.Errorf("record run: encode outputs: %w", err)
	}
	logsJSON, err := json.Marshal(rc.Logs())
	if err != nil {
		return fmt.Errorf("record run: encode logs: %w", err)
	}
	usage := rc.Usage()
	total := rc.TotalUsage()
	recordedAt := rc.Now()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, rc.RunID); err != nil {
			return fmt.Errorf("record run: clear previous: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (
                id, status, error_message, brief, platform, creativity,
                preset_id, preset_kind, inputs_json, outputs_json, logs_json,
                total_tokens, cost_usd, created_at, recorded_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rc.RunID,
			string(rc.Status),
			nullableString(rc.ErrorMessage),
			rc.Inputs.Brief,
			nullableString(rc.Inputs.Platform),
			rc.Inputs.Creativity,
			nullableString(rc.PresetID),
			nullableString(rc.PresetKind),
			string(inputsJSON),
			string(outputsJSON),
			string(logsJSON),
			total.TotalTokens,
			total.CostUSD,
			formatTime(rc.CreatedAt),
			formatTime(recordedAt),
		); err != nil {
			return fmt.Errorf("record run: insert run: %w", err)
		}

		for i, rec := range rc.StageRecords {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stage_records (
                    run_id, position, name, state, started_at, finished_at, duration_ms, error, reason
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rc.RunID,
				i,
				rec.Name,
				string(rec.State),
				formatTime(rec.StartedAt),
				formatTime(rec.FinishedAt),
				rec.Duration.Milliseconds(),
				nullableString(rec.Error),
				nullableString(rec.Reason),
			); err != nil {
				return fmt.Errorf("record run: insert stage %s: %w", rec.Name, err)
			}
		}

		stages := make([]string, 0, len(usage))
		for stage := range usage {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		for _, stage := range stages {
			rec := usage[stage]
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stage_usage (
                    run_id, stage, model_id, prompt_tokens, completion_tokens, total_tokens,
                    cost_usd, is_fallback, calls
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rc.RunID,
				stage,
				nullableString(rec.ModelID),
				rec.PromptTokens,
				rec.CompletionTokens,
				rec.TotalTokens,
				rec.CostUSD,
				boolToInt(rec.IsFallback),
				rec.Calls,
			); err != nil {
				return fmt.Errorf("record run: insert usage %s: %w", stage, err)
			}
		}
		return nil
	})
}

// runOutputs collects present slot values keyed by slot name.
func runOutputs(rc *pipeline.Context) map[string]any {
	out := make(map[string]any)
	if v, ok := rc.Strategies.Get(); ok {
		out[pipeline.SlotStrategies] = v
	}
	if v, ok := rc.StyleGuides.Get(); ok {
		out[pipeline.SlotStyleGuides] = v
	}
	if v, ok := rc.Concepts.Get(); ok {
		out[pipeline.SlotConcepts] = v
	}
	if v, ok := rc.FinalPrompts.Get(); ok {
		out[pipeline.SlotFinalPrompts] = v
	}
	if v, ok := rc.Assessments.Get(); ok {
		out[pipeline.SlotAssessments] = v
	}
	return out
}

const runColumns = "id, status, error_message, brief, platform, creativity, preset_id, preset_kind, total_tokens, cost_usd, created_at, recorded_at"

// scanRun reads runColumns followed by any extra destinations.
func scanRun(scanner interface{ Scan(dest ...any) error }, extra ...any) (Run, error) {
	var (
		run          Run
		status       string
		errorMessage sql.NullString
		platform     sql.NullString
		presetID     sql.NullString
		presetKind   sql.NullString
		createdRaw   sql.NullString
		recordedRaw  sql.NullString
	)
	dest := []any{
		&run.ID,
		&status,
		&errorMessage,
		&run.Brief,
		&platform,
		&run.Creativity,
		&presetID,
		&presetKind,
		&run.TotalTokens,
		&run.CostUSD,
		&createdRaw,
		&recordedRaw,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return Run{}, err
	}
	run.Status = pipeline.RunStatus(status)
	run.ErrorMessage = errorMessage.String
	run.Platform = platform.String
	run.PresetID = presetID.String
	run.PresetKind = presetKind.String
	run.CreatedAt = parseTime(createdRaw)
	run.RecordedAt = parseTime(recordedRaw)
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a run with its stages and usage. Missing runs return services.ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	ctx = ensureContext(ctx)
	var (
		inputsJSON  string
		outputsJSON sql.NullString
		logsJSON    sql.NullString
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+`, inputs_json, outputs_json, logs_json FROM runs WHERE id = ?`, id)
	run, err := scanRun(row, &inputsJSON, &outputsJSON, &logsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "", "get run", fmt.Sprintf("run %q", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	detail := &RunDetail{Run: run}
	if err := json.Unmarshal([]byte(inputsJSON), &detail.Inputs); err != nil {
		return nil, fmt.Errorf("get run: decode inputs: %w", err)
	}
	if outputsJSON.Valid && outputsJSON.String != "" {
		if err := json.Unmarshal([]byte(outputsJSON.String), &detail.Outputs); err != nil {
			return nil, fmt.Errorf("get run: decode outputs: %w", err)
		}
	}
	if logsJSON.Valid && logsJSON.String != "" {
		if err := json.Unmarshal([]byte(logsJSON.String), &detail.Logs); err != nil {
			return nil, fmt.Errorf("get run: decode logs: %w", err)
		}
	}
	if detail.Stages, err = s.stageRecords(ctx, id); err != nil {
		return nil, err
	}
	if detail.Usage, err = s.stageUsage(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Store) stageRecords(ctx context.Context, runID string) ([]pipeline.StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, state, started_at, finished_at, duration_ms, error, reason
         FROM stage_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stage records: %w", err)
	}
	defer rows.Close()

	var records []pipeline.StageRecord
	for rows.Next() {
		var (
			rec        pipeline.StageRecord
			state      string
			started    sql.NullString
			finished   sql.NullString
			durationMs int64
			errText    sql.NullString
			reason     sql.NullString
		)
		if err := rows.Scan(&rec.Name, &state, &started, &finished, &durationMs, &errText, &reason); err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		rec.State = pipeline.StageState(state)
		rec.StartedAt = parseTime(started)
		rec.FinishedAt = parseTime(finished)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Error = errText.String
		rec.Reason = reason.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) stageUsage(ctx context.Context, runID string) ([]StageUsage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, model_id, prompt_tokens, completion_tokens, total_tokens, cost_usd, is_fallback, calls
         FROM stage_usage WHERE run_id = ? ORDER BY stage`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stage usage: %w", err)
	}
	defer rows.Close()

	var usage []StageUsage
	for rows.Next() {
		var (
			u        StageUsage
			modelID  sql.NullString
			fallback int
		)
		if err := rows.Scan(&u.Stage, &modelID, &u.PromptTokens, &u.CompletionTokens, &u.TotalTokens, &u.CostUSD, &fallback, &u.Calls); err != nil {
			return nil, fmt.Errorf("scan stage usage: %w", err)
		}
		u.ModelID = modelID.String
		u.IsFallback = fallback != 0
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
