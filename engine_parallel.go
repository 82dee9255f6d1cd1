package sema

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// QueryKind selects what a batched query computes.
type QueryKind string

const (
	QueryComplete   QueryKind = "complete"
	QueryDefinition QueryKind = "find-definition"
	QueryTypeOf     QueryKind = "type-of"
)

// Query is one position to answer in a batch.
type Query struct {
	Kind QueryKind
	Path string
	At   Coordinate
}

// Result answers the Query at the same index of a batch. Matches holds the
// completions or the single definition found; Type is set for type-of.
type Result struct {
	Query   Query
	Matches []Match
	Type    Ty
	Err     error
}

// RunBatch answers queries using a worker pool. Each worker runs its own
// session, so workers share the file cache but not session state. Results
// are returned in query order; a cancelled ctx fails the queries not yet
// started.
func (e *Engine) RunBatch(ctx context.Context, queries []Query) []Result {
	results := make([]Result, len(queries))
	if len(queries) == 0 {
		return results
	}

	numWorkers := max(1, min(runtime.NumCPU(), len(queries)))
	work := make(chan int, len(queries))
	for i := range queries {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := e.NewSession()
			for i := range work {
				if err := ctx.Err(); err != nil {
					results[i] = Result{Query: queries[i], Err: err}
					continue
				}
				results[i] = sess.run(queries[i])
			}
		}()
	}
	wg.Wait()
	return results
}

func (s *Session) run(q Query) Result {
	res := Result{Query: q}
	switch q.Kind {
	case QueryComplete:
		res.Matches = s.CompleteAt(q.Path, q.At)
	case QueryDefinition:
		if m, ok := s.DefinitionAt(q.Path, q.At); ok {
			res.Matches = []Match{m}
		}
	case QueryTypeOf:
		if ty, ok := s.TypeAt(q.Path, q.At); ok {
			res.Type = ty
		}
	default:
		res.Err = fmt.Errorf("sema: unknown query kind %q", q.Kind)
	}
	return res
}
