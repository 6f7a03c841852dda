package verifier

import (
	"context"
	"runtime"
	"time"

	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/transaction"
	"github.com/kysee/zktx/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// VerifyTransactions reports whether every serialized transaction parses
// and verifies. An empty batch is valid. A single malformed transaction
// makes the whole batch invalid before any proof is checked.
func VerifyTransactions(params *prover.Params, serialized [][]byte) bool {
	return VerifyTransactionsContext(context.Background(), params, serialized) == nil
}

// VerifyTransactionsContext is VerifyTransactions returning the first
// failure. Transactions are checked concurrently and the batch stops at
// the first invalid one.
func VerifyTransactionsContext(ctx context.Context, params *prover.Params, serialized [][]byte) error {
	start := time.Now()
	defer func() { BatchDuration.Observe(time.Since(start).Seconds()) }()

	txs := make([]*transaction.Transaction, len(serialized))
	for i, bz := range serialized {
		tx, err := transaction.ReadTransaction(bz)
		if err != nil {
			TransactionsTotal.WithLabelValues("malformed").Inc()
			utils.Logger().Warn().Err(err).Int("index", i).Msg("malformed transaction in batch")
			return errors.Wrapf(err, "transaction %d", i)
		}
		txs[i] = tx
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := range txs {
		idx := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := txs[idx].Verify(params); err != nil {
				TransactionsTotal.WithLabelValues("invalid").Inc()
				utils.Logger().Warn().Err(err).Int("index", idx).Msg("transaction failed verification")
				return errors.Wrapf(err, "transaction %d", idx)
			}
			TransactionsTotal.WithLabelValues("valid").Inc()
			return nil
		})
	}
	return eg.Wait()
}
