package db

import (
	"context"
	"database/sql"
)

const createFetchRun = `-- name: CreateFetchRun :one
insert into fetch_run(source, started_at, finished_at)
values (?, ?, ?)
returning id
`

type CreateFetchRunParams struct {
	Source     string
	StartedAt  int64
	FinishedAt int64
}

func (q *Queries) CreateFetchRun(ctx context.Context, arg CreateFetchRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createFetchRun, arg.Source, arg.StartedAt, arg.FinishedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createUserRecord = `-- name: CreateUserRecord :one
insert into user_record(run_id, position, user_id, error)
values (?, ?, ?, ?)
returning id
`

type CreateUserRecordParams struct {
	RunID    int64
	Position int64
	UserID   string
	Error    sql.NullString
}

func (q *Queries) CreateUserRecord(ctx context.Context, arg CreateUserRecordParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createUserRecord,
		arg.RunID,
		arg.Position,
		arg.UserID,
		arg.Error,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createUserField = `-- name: CreateUserField :exec
insert into user_field(record_id, position, key, value)
values (?, ?, ?, ?)
`

type CreateUserFieldParams struct {
	RecordID int64
	Position int64
	Key      string
	Value    string
}

func (q *Queries) CreateUserField(ctx context.Context, arg CreateUserFieldParams) error {
	_, err := q.db.ExecContext(ctx, createUserField,
		arg.RecordID,
		arg.Position,
		arg.Key,
		arg.Value,
	)
	return err
}

const getFetchRun = `-- name: GetFetchRun :one
select id, source, started_at, finished_at from fetch_run
where id = ?
`

func (q *Queries) GetFetchRun(ctx context.Context, id int64) (FetchRun, error) {
	row := q.db.QueryRowContext(ctx, getFetchRun, id)
	var i FetchRun
	err := row.Scan(
		&i.ID,
		&i.Source,
		&i.StartedAt,
		&i.FinishedAt,
	)
	return i, err
}

const listFetchRuns = `-- name: ListFetchRuns :many
select id, source, started_at, finished_at from fetch_run
order by id desc
limit ?
`

func (q *Queries) ListFetchRuns(ctx context.Context, limit int64) ([]FetchRun, error) {
	rows, err := q.db.QueryContext(ctx, listFetchRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FetchRun
	for rows.Next() {
		var i FetchRun
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUserRecords = `-- name: GetUserRecords :many
select id, run_id, position, user_id, error from user_record
where run_id = ?
order by position asc
`

func (q *Queries) GetUserRecords(ctx context.Context, runID int64) ([]UserRecord, error) {
	rows, err := q.db.QueryContext(ctx, getUserRecords, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRecord
	for rows.Next() {
		var i UserRecord
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Position,
			&i.UserID,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUserFields = `-- name: GetUserFields :many
select user_field.record_id, user_field.position, user_field.key, user_field.value from user_field
inner join user_record on user_record.id = user_field.record_id
where user_record.run_id = ?
order by user_field.record_id asc, user_field.position asc
`

func (q *Queries) GetUserFields(ctx context.Context, runID int64) ([]UserField, error) {
	rows, err := q.db.QueryContext(ctx, getUserFields, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserField
	for rows.Next() {
		var i UserField
		if err := rows.Scan(
			&i.RecordID,
			&i.Position,
			&i.Key,
			&i.Value,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteFetchRun = `-- name: DeleteFetchRun :execrows
delete from fetch_run where id = ?
`

func (q *Queries) DeleteFetchRun(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteFetchRun, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
