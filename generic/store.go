/*
store.go - Persistence interface for ledger transactions

PURPOSE:
  Defines the boundary between the ledger and a database. The Store keeps
  append-only semantics: there is no Update and no Delete.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite, used by the server
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import "context"

// Store handles persistence of transactions. APPEND-ONLY.
type Store interface {
	// Append persists a transaction.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for entity+policy, ordered by EffectiveAt.
	Load(ctx context.Context, entityID EntityID, policyID PolicyID) ([]Transaction, error)

	// LoadRange returns transactions effective in [from, to].
	LoadRange(ctx context.Context, entityID EntityID, policyID PolicyID, from, to TimePoint) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
