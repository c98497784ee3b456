package db

import (
	"context"
	"errors"
	"surveylogic/internal/scrapers/portal"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTestStore(t testing.TB) Store {
	database, err := OpenDB(Config{File: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	started := time.UnixMilli(1718000000000)
	run := Run{
		Source:     "input_ids.xlsx",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Results: []portal.Result{
			{
				UserID: "42",
				Record: portal.Record{UserID: "42", Fields: []portal.Field{
					{Key: "User ID", Value: "42"},
					{Key: "Name", Value: "Ada"},
				}},
			},
			{UserID: "missing", Err: errors.New("user properties section not found")},
			{
				UserID: "7",
				Record: portal.Record{UserID: "7", Fields: []portal.Field{
					{Key: "Group", Value: "staff"},
				}},
			},
		},
	}

	id, err := store.SaveRun(ctx, run)
	require.NoError(t, err)

	saved, err := store.Run(ctx, id)
	require.NoError(t, err)

	run.ID = id
	run.Results[1].Err = StoredError{Message: "user properties section not found"}
	diff := cmp.Diff(run, saved)
	if diff != "" {
		t.Fatal(diff)
	}

	other, err := store.SaveRun(ctx, Run{Source: "other.csv", StartedAt: started, FinishedAt: started})
	require.NoError(t, err)
	require.Greater(t, other, id)

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, other, runs[0].ID)
	require.Equal(t, "input_ids.xlsx", runs[1].Source)
	require.Empty(t, runs[1].Results)

	empty, err := store.Run(ctx, other)
	require.NoError(t, err)
	require.Empty(t, empty.Results)
}

func TestRunNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Run(context.Background(), 99)
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, err := store.SaveRun(ctx, Run{
		Source:  "ids.csv",
		Results: []portal.Result{{UserID: "1", Record: portal.Record{UserID: "1", Fields: []portal.Field{{Key: "a", Value: "b"}}}}},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteRun(ctx, id))
	_, err = store.Run(ctx, id)
	require.ErrorIs(t, err, ErrRunNotFound)
	require.ErrorIs(t, store.DeleteRun(ctx, id), ErrRunNotFound)

	fields, err := store.qry.GetUserFields(ctx, id)
	require.NoError(t, err)
	require.Empty(t, fields)
}

func TestOpenDBWithoutTarget(t *testing.T) {
	_, err := OpenDB(Config{})
	require.Error(t, err)
}
