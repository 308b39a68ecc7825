/*
ledger.go - Append-only transaction log

PURPOSE:
  Classification itself is pure and keeps nothing between runs. The ledger
  is where a finished run may record the quota it spent, so that the next
  month's run for the same half-year starts from what is already used
  instead of a fresh quota.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)

CORRECTIONS:
  A mistaken consumption is undone with a TxReversal of the opposite sign.
  Both entries stay in the ledger.

SEE ALSO:
  - store.go: Low-level persistence interface
  - attendance/ledger.go: Recording casual leave from a run
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only transaction log
// =============================================================================

// Ledger is the source of truth for quota consumption across runs.
type Ledger interface {
	// Append adds a transaction. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch adds multiple transactions atomically and returns how
	// many were written.
	AppendBatch(ctx context.Context, txs []Transaction) (int, error)

	// TransactionsInRange returns transactions effective in [from, to].
	TransactionsInRange(ctx context.Context, entityID EntityID, policyID PolicyID, from, to TimePoint) ([]Transaction, error)

	// ConsumedIn sums consumption minus reversals within the period.
	ConsumedIn(ctx context.Context, entityID EntityID, policyID PolicyID, period Period) (Amount, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, tx)
}

// AppendBatch silently drops transactions whose idempotency key is already
// stored, so re-persisting a run only writes what is new. The count excludes
// dropped transactions.
func (l *DefaultLedger) AppendBatch(ctx context.Context, txs []Transaction) (int, error) {
	fresh := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey != "" {
			exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
			if err != nil {
				return 0, err
			}
			if exists {
				continue
			}
		}
		fresh = append(fresh, tx)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := l.Store.AppendBatch(ctx, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

func (l *DefaultLedger) TransactionsInRange(ctx context.Context, entityID EntityID, policyID PolicyID, from, to TimePoint) ([]Transaction, error) {
	return l.Store.LoadRange(ctx, entityID, policyID, from, to)
}

func (l *DefaultLedger) ConsumedIn(ctx context.Context, entityID EntityID, policyID PolicyID, period Period) (Amount, error) {
	txs, err := l.Store.LoadRange(ctx, entityID, policyID, period.Start, period.End)
	if err != nil {
		return Amount{}, err
	}

	consumed := NewAmount(0, UnitDays)
	for _, tx := range txs {
		switch tx.Type {
		case TxConsumption:
			consumed = consumed.Add(tx.Delta.Neg()) // stored negative
		case TxReversal:
			consumed = consumed.Sub(tx.Delta)
		}
	}
	return consumed, nil
}
