package ledger

import (
	"database/sql"
	"time"
)

const runColumns = "id, dataset, output_dir, status, started_at, finished_at, submissions, filtered, positives, negatives, valid_positives, controls, unmatched, balance_json, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		outputDir    sql.NullString
		status       string
		startedRaw   string
		finishedRaw  sql.NullString
		balanceJSON  sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Dataset,
		&outputDir,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.Submissions,
		&run.Filtered,
		&run.Positives,
		&run.Negatives,
		&run.ValidPositives,
		&run.Controls,
		&run.Unmatched,
		&balanceJSON,
		&errorMessage,
	); err != nil {
		return nil, err
	}
	run.OutputDir = outputDir.String
	run.Status = Status(status)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.BalanceJSON = balanceJSON.String
	run.ErrorMessage = errorMessage.String
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
