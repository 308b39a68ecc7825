/*
balance.go - Quota balances

PURPOSE:
  A Balance answers "how much of a fixed quota is left in this period?".
  Casual leave is the only quota today: a consultant has 7 (or 6) days
  per half-year and each qualifying absence spends one.

KEY INSIGHT:
  Balances are values. Consume returns a new Balance instead of mutating
  the receiver, so a classification pass can thread its balances through
  a fold and two passes never observe each other's consumption.

BALANCE COMPONENTS:
  TotalEntitlement: The quota fixed when the balance was opened
  TotalConsumed:    What has been spent, monotonically increasing

SEE ALSO:
  - ledger.go: Replaying persisted consumption into a Balance
  - attendance/casual_leave.go: Per-half-year casual leave balances
*/
package generic

// =============================================================================
// BALANCE - Quota for one entity in one period
// =============================================================================

type Balance struct {
	EntityID EntityID
	PolicyID PolicyID
	Period   Period

	// Quota for the period, fixed at creation
	TotalEntitlement Amount

	// Spent so far; never decreases
	TotalConsumed Amount
}

// NewBalance opens a balance with nothing consumed.
func NewBalance(entityID EntityID, policyID PolicyID, period Period, quota Amount) Balance {
	return Balance{
		EntityID:         entityID,
		PolicyID:         policyID,
		Period:           period,
		TotalEntitlement: quota,
		TotalConsumed:    quota.Zero(),
	}
}

// Available returns entitlement minus consumption, never below zero.
func (b Balance) Available() Amount {
	return b.TotalEntitlement.Sub(b.TotalConsumed).Max(b.TotalEntitlement.Zero())
}

// CanConsume reports whether amount fits in what is left.
func (b Balance) CanConsume(amount Amount) bool {
	return !b.Available().Sub(amount).IsNegative()
}

// Consume returns the balance after spending amount, or an
// InsufficientBalanceError leaving the receiver untouched.
func (b Balance) Consume(amount Amount) (Balance, error) {
	if !b.CanConsume(amount) {
		return b, &InsufficientBalanceError{
			EntityID:  b.EntityID,
			PolicyID:  b.PolicyID,
			Period:    b.Period,
			Available: b.Available(),
			Requested: amount,
		}
	}
	b.TotalConsumed = b.TotalConsumed.Add(amount)
	return b, nil
}

// WithConsumed raises TotalConsumed to at least consumed. Used when seeding a
// balance from consumption recorded by earlier runs; it never lowers it.
func (b Balance) WithConsumed(consumed Amount) Balance {
	b.TotalConsumed = b.TotalConsumed.Max(consumed)
	return b
}

// Exhausted reports whether nothing is left.
func (b Balance) Exhausted() bool {
	return !b.Available().IsPositive()
}
