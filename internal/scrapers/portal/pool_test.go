package portal

import (
	"context"
	"errors"
	"fmt"
	"surveylogic/internal/components/telemetry"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errNoSuchUser = errors.New("no such user")

type fetcherFunc func(ctx context.Context, userID string) (Record, error)

func (f fetcherFunc) FetchUser(ctx context.Context, userID string) (Record, error) {
	return f(ctx, userID)
}

func TestFetchAllKeepsOrder(t *testing.T) {
	var calls atomic.Int64
	fetcher := fetcherFunc(func(_ context.Context, userID string) (Record, error) {
		calls.Add(1)
		// later ids finish first
		if userID < "3" {
			time.Sleep(10 * time.Millisecond)
		}
		if userID == "bad" {
			return Record{}, errNoSuchUser
		}
		return Record{UserID: userID, Fields: []Field{{Key: "id", Value: userID}}}, nil
	})

	tel := &telemetry.Recorder{}
	pool := NewPool([]UserFetcher{fetcher, fetcher, fetcher, fetcher}, tel)

	ids := []string{"1", "2", "bad", "3", "4", "5"}
	results := pool.FetchAll(context.Background(), ids)
	require.Len(t, results, len(ids))
	require.EqualValues(t, len(ids), calls.Load())

	for i, r := range results {
		require.Equal(t, ids[i], r.UserID)
		if r.UserID == "bad" {
			require.ErrorIs(t, r.Err, errNoSuchUser)
			require.Equal(t, Record{}, r.Record)
			continue
		}
		require.NoError(t, r.Err)
		require.Equal(t, ids[i], r.Record.UserID)
	}

	counts := map[string]int64{}
	for _, r := range tel.Reports("count") {
		counts[r.ID] = r.Count
	}
	require.Equal(t, map[string]int64{
		"portal: " + report_pool_fetched: 5,
		"portal: " + report_pool_failed:  1,
	}, counts)
}

func TestFetchAllCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := fetcherFunc(func(ctx context.Context, userID string) (Record, error) {
		if userID == "stop" {
			cancel()
		}
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		return Record{UserID: userID}, nil
	})

	pool := NewPool([]UserFetcher{fetcher}, &telemetry.Recorder{})

	ids := []string{"1", "2", "stop"}
	for i := 0; i < 5; i++ {
		ids = append(ids, fmt.Sprint(10+i))
	}
	results := pool.FetchAll(ctx, ids)
	require.Len(t, results, len(ids))

	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	for _, r := range results[2:] {
		require.ErrorIs(t, r.Err, context.Canceled, r.UserID)
	}
}

func TestFetchAllEmpty(t *testing.T) {
	fetcher := fetcherFunc(func(context.Context, string) (Record, error) {
		t.Fatal("no ids to fetch")
		return Record{}, nil
	})
	pool := NewPool([]UserFetcher{fetcher}, &telemetry.Recorder{})
	require.Empty(t, pool.FetchAll(context.Background(), nil))
}
