package portal

import (
	"context"
	"fmt"
	"surveylogic/internal/components/assert"
	"surveylogic/internal/components/telemetry"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	report_pool_dial    = "pool.dial"
	report_pool_fetch   = "pool.fetch"
	report_pool_failed  = "pool.failed"
	report_pool_fetched = "pool.fetched"
)

// UserFetcher is a session capable of querying one user at a time.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (Record, error)
}

// Pool spreads user ids over a fixed set of sessions, each session is driven
// by exactly one worker.
type Pool struct {
	sessions []UserFetcher
	tel      telemetry.API
}

func NewPool(sessions []UserFetcher, tel telemetry.API) *Pool {
	assert.NotNil(tel)
	assert.Positive(len(sessions))
	return &Pool{
		sessions: sessions,
		tel:      telemetry.NewScopedAPI("portal", tel),
	}
}

// Dial logs in `workers` independent sessions concurrently.
func Dial(ctx context.Context, opts Options, creds Credentials, workers int, tel telemetry.API) (*Pool, error) {
	assert.NotNil(tel)
	assert.Positive(workers)

	sessions := make([]UserFetcher, workers)
	group, groupCtx := errgroup.WithContext(ctx)
	for i := range sessions {
		group.Go(func() error {
			sessionOpts := opts
			if opts.Dump != nil {
				sessionOpts.Dump = telemetry.PrefixedOutput{
					Prefix: fmt.Sprintf("session-%d.", i),
					Output: opts.Dump,
				}
			}
			client, err := NewClient(sessionOpts, tel)
			if err != nil {
				return err
			}
			err = client.Login(groupCtx, creds)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			sessions[i] = client
			return nil
		})
	}
	err := group.Wait()
	if err != nil {
		return nil, err
	}

	tel.ReportDebug(report_pool_dial, "sessions ready", workers)
	return NewPool(sessions, tel), nil
}

// FetchAll returns one Result per id in the same order as `ids`. A failed id
// never stops the others, when ctx is cancelled the ids that were never
// dispatched carry the context error.
func (p *Pool) FetchAll(ctx context.Context, ids []string) []Result {
	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i].UserID = id
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for _, session := range p.sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				record, err := session.FetchUser(ctx, ids[i])
				if err != nil {
					p.tel.ReportWarning(report_pool_fetch, err, ids[i])
					results[i].Err = err
					continue
				}
				results[i].Record = record
			}
		}()
	}

	dispatched := 0
dispatch:
	for i := range ids {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()

	for i := dispatched; i < len(ids); i++ {
		results[i].Err = ctx.Err()
	}

	var failed int64
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.tel.ReportCount(report_pool_fetched, int64(len(ids))-failed)
	p.tel.ReportCount(report_pool_failed, failed)

	return results
}
