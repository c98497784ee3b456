package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"surveylogic/internal/components/assert"
	"surveylogic/internal/scrapers/portal"
	"time"
)

var ErrRunNotFound = errors.New("fetch run not found")

// Run is one batch of fetched users, Results are kept in fetch order.
type Run struct {
	ID         int64
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []portal.Result
}

// StoredError is the error of a result read back from the database, only
// its message survives the round trip.
type StoredError struct {
	Message string
}

func (e StoredError) Error() string {
	return e.Message
}

// Store persists fetch runs.
type Store struct {
	qry    *Queries
	makeTx MakeTx
}

func NewStore(database *sql.DB) Store {
	assert.NotNil(database)
	return Store{
		qry:    New(database),
		makeTx: NewMakeTx(database),
	}
}

// SaveRun writes the run along with every result in a single transaction and
// returns its id.
func (s Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	defer discard()

	runId, err := tx.CreateFetchRun(ctx, CreateFetchRunParams{
		Source:     run.Source,
		StartedAt:  run.StartedAt.UnixMilli(),
		FinishedAt: run.FinishedAt.UnixMilli(),
	})
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}

	for i, result := range run.Results {
		var resultErr sql.NullString
		if result.Err != nil {
			resultErr = sql.NullString{String: result.Err.Error(), Valid: true}
		}
		recordId, err := tx.CreateUserRecord(ctx, CreateUserRecordParams{
			RunID:    runId,
			Position: int64(i),
			UserID:   result.UserID,
			Error:    resultErr,
		})
		if err != nil {
			return 0, fmt.Errorf("save user %q: %w", result.UserID, err)
		}
		for j, field := range result.Record.Fields {
			err = tx.CreateUserField(ctx, CreateUserFieldParams{
				RecordID: recordId,
				Position: int64(j),
				Key:      field.Key,
				Value:    field.Value,
			})
			if err != nil {
				return 0, fmt.Errorf("save user %q field %q: %w", result.UserID, field.Key, err)
			}
		}
	}

	err = commit()
	if err != nil {
		return 0, fmt.Errorf("save run: commit: %w", err)
	}
	return runId, nil
}

// Run reads a run back, successful results get their record's UserID set to
// the queried id.
func (s Store) Run(ctx context.Context, id int64) (Run, error) {
	row, err := s.qry.GetFetchRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	records, err := s.qry.GetUserRecords(ctx, id)
	if err != nil {
		return Run{}, err
	}
	fields, err := s.qry.GetUserFields(ctx, id)
	if err != nil {
		return Run{}, err
	}
	fieldsByRecord := map[int64][]portal.Field{}
	for _, f := range fields {
		fieldsByRecord[f.RecordID] = append(fieldsByRecord[f.RecordID], portal.Field{
			Key:   f.Key,
			Value: f.Value,
		})
	}

	run := Run{
		ID:         row.ID,
		Source:     row.Source,
		StartedAt:  time.UnixMilli(row.StartedAt),
		FinishedAt: time.UnixMilli(row.FinishedAt),
		Results:    make([]portal.Result, 0, len(records)),
	}
	for _, r := range records {
		result := portal.Result{UserID: r.UserID}
		if r.Error.Valid {
			result.Err = StoredError{Message: r.Error.String}
		} else {
			result.Record = portal.Record{
				UserID: r.UserID,
				Fields: fieldsByRecord[r.ID],
			}
		}
		run.Results = append(run.Results, result)
	}
	return run, nil
}

// Runs lists the most recent runs without their results.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	assert.Positive(limit)

	rows, err := s.qry.ListFetchRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, Run{
			ID:         row.ID,
			Source:     row.Source,
			StartedAt:  time.UnixMilli(row.StartedAt),
			FinishedAt: time.UnixMilli(row.FinishedAt),
		})
	}
	return runs, nil
}

// DeleteRun removes a run along with its records and fields.
func (s Store) DeleteRun(ctx context.Context, id int64) error {
	deleted, err := s.qry.DeleteFetchRun(ctx, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}
