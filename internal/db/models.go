package db

import (
	"database/sql"
)

type FetchRun struct {
	ID         int64
	Source     string
	StartedAt  int64
	FinishedAt int64
}

type UserField struct {
	RecordID int64
	Position int64
	Key      string
	Value    string
}

type UserRecord struct {
	ID       int64
	RunID    int64
	Position int64
	UserID   string
	Error    sql.NullString
}
