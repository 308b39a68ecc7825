/*
Package generic provides the domain-agnostic building blocks of the attendance engine.

PURPOSE:
  The attendance package classifies days; this package supplies the pieces
  that have nothing to do with hospitals or consultants: calendar days,
  periods (years, half-years, months), decimal quantities, quota balances
  and the append-only ledger used to remember leave already spent.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 7 days of casual leave)
  - Transaction: An immutable ledger entry recording quota consumption
  - Entity/Policy IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only reversed
  2. Precision: Uses decimal.Decimal so day counts never drift
  3. Type Safety: Strong typing for IDs prevents mixing employee/policy IDs

USAGE:
  quota := generic.NewAmountFromInt(7, generic.UnitDays)
  tx := generic.Transaction{
      EntityID: "emp-123",
      PolicyID: "clinic_consultant",
      Delta:    quota.Neg(),
      Type:     generic.TxConsumption,
  }

SEE ALSO:
  - period.go: Calendar periods and half-year boundaries
  - balance.go: Quota balances
  - ledger.go: Transaction persistence interface
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for an Amount of whole days.
func Days(n int) Amount { return NewAmountFromInt(n, UnitDays) }

func (a Amount) Zero() Amount               { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount        { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount        { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount                { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool           { return a.Value.IsNegative() }
func (a Amount) IsZero() bool               { return a.Value.IsZero() }
func (a Amount) IsPositive() bool           { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool  { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool     { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool        { return a.Value.Equal(b.Value) }
func (a Amount) IntPart() int               { return int(a.Value.IntPart()) }
func (a Amount) String() string             { return a.Value.String() + " " + string(a.Unit) }

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type PolicyID string
type TransactionID string

// ResourceType identifies what kind of quota is being tracked.
// Domain packages define their own concrete types:
//
//   // In attendance/types.go
//   type Resource string
//   func (r Resource) ResourceID() string { return string(r) }
//   func (r Resource) ResourceDomain() string { return "attendance" }
//   const ResourceCasualLeave Resource = "casual_leave"
type ResourceType interface {
	ResourceID() string
	ResourceDomain() string
}

// =============================================================================
// TRANSACTION - Atomic change to a quota
// =============================================================================

type TransactionType string

const (
	TxGrant       TransactionType = "grant"       // Quota granted outside the policy (manual top-up)
	TxConsumption TransactionType = "consumption" // Quota spent by a classified day
	TxReversal    TransactionType = "reversal"    // Undo a previous transaction
)

type Transaction struct {
	ID             TransactionID
	EntityID       EntityID
	PolicyID       PolicyID
	ResourceType   ResourceType
	EffectiveAt    TimePoint
	Delta          Amount
	Type           TransactionType
	ReferenceID    string // processing run that produced the entry
	Reason         string
	IdempotencyKey string
	CreatedAt      TimePoint
}
