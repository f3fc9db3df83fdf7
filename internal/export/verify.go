package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"qdt/internal/sink"
)

// VerifyTimeout is the maximum time to wait for a single scope's row
// count query.
const VerifyTimeout = 30 * time.Second

// scopeResult holds the result of verifying a single dump scope: one
// partition, or the whole table for unpartitioned dumps.
type scopeResult struct {
	scope       string
	sourceCount int64
	fileCount   int64
	missing     bool
	err         error
}

// Verify recomputes the partition keys from the source and compares each
// scope's COUNT(*) against the rows recorded in its parquet file. The
// report is sorted by scope. Returns an error if any scope fails.
func (e *Exporter) Verify(ctx context.Context) error {
	if err := e.Validate(); err != nil {
		return err
	}

	conn, err := e.src.Conn(ctx)
	if err != nil {
		return &QueryError{Op: "acquiring source connection", Err: err}
	}
	defer conn.Close()

	var results []scopeResult
	if len(e.opts.PartitionBy) > 0 {
		keys, err := e.discoverPartitions(ctx, conn)
		if err != nil {
			return err
		}
		for _, key := range keys {
			results = append(results, e.verifyScope(ctx, conn, key))
		}
	} else {
		results = append(results, e.verifyScope(ctx, conn, nil))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].scope < results[j].scope
	})

	e.log.Info("\nVerification Results:")
	e.log.Info("---------------------")

	var failed bool
	for _, r := range results {
		switch {
		case r.err != nil:
			e.log.Error("%-30s ERROR: %v", r.scope, r.err)
			failed = true
		case r.missing && r.sourceCount == 0:
			// A zero-row scope legitimately has no file.
			e.log.Info("%-30s OK empty (no file)", r.scope)
		case r.missing:
			e.log.Error("%-30s MISSING source=%d", r.scope, r.sourceCount)
			failed = true
		case r.fileCount == r.sourceCount:
			e.log.Info("%-30s OK %d rows", r.scope, r.fileCount)
		default:
			e.log.Error("%-30s FAIL source=%d file=%d (diff=%d)",
				r.scope, r.sourceCount, r.fileCount, r.sourceCount-r.fileCount)
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("verification failed")
	}
	return nil
}

// verifyScope verifies a single scope. A nil key means the unpartitioned
// whole-table scope.
func (e *Exporter) verifyScope(ctx context.Context, conn *sql.Conn, key PartitionKey) scopeResult {
	var r scopeResult
	path := e.opts.Output
	if key == nil {
		r.scope = e.opts.Table
	} else {
		r.scope = key.String()
		dir, err := key.Dir(e.opts.Output)
		if err != nil {
			r.err = err
			return r
		}
		path = filepath.Join(dir, DataFileName)
	}

	r.sourceCount, r.err = e.countScope(ctx, conn, key)
	if r.err != nil {
		return r
	}

	n, err := sink.NumRows(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.missing = true
			return r
		}
		r.err = err
		return r
	}
	r.fileCount = n
	return r
}

func (e *Exporter) countScope(ctx context.Context, conn *sql.Conn, key PartitionKey) (int64, error) {
	var where string
	var args []any
	if len(key) > 0 {
		where, args = e.partitionPredicate(key)
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s",
		e.src.Dialect.QuoteIdentifier(e.opts.Table), where)

	timeoutCtx, cancel := context.WithTimeout(ctx, VerifyTimeout)
	defer cancel()

	var n int64
	if err := conn.QueryRowContext(timeoutCtx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("source count: %w", err)
	}
	return n, nil
}
