package attendance

import (
	"fmt"
	"sort"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// CL BALANCE - One consultant, one half-year
// =============================================================================

// CLBalance is the casual leave quota of one employee for one half-year.
// TotalEntitlement is the quota, TotalConsumed only ever grows.
type CLBalance struct {
	Half generic.HalfYear
	generic.Balance
}

func (b CLBalance) Year() int     { return b.Period.Start.Year() }
func (b CLBalance) Quota() int    { return b.TotalEntitlement.IntPart() }
func (b CLBalance) Consumed() int { return b.TotalConsumed.IntPart() }

func (b CLBalance) String() string {
	return fmt.Sprintf("%s %d-%s: %d/%d", b.EntityID, b.Year(), b.Half, b.Consumed(), b.Quota())
}

type halfKey struct {
	year int
	half generic.HalfYear
}

func keyOf(date generic.TimePoint) halfKey {
	return halfKey{year: date.Year(), half: generic.HalfYearOf(date)}
}

// =============================================================================
// ALLOCATOR - Turns absences into CL until the half's quota runs out
// =============================================================================

// Allocator holds the CL balances of a single employee during a single
// pass. It is created by Classify and never shared between employees.
type Allocator struct {
	employee Employee
	policyID generic.PolicyID
	h1, h2   int
	balances map[halfKey]CLBalance
}

// NewAllocator computes the employee's half-year quotas. opening carries
// consumption recorded by earlier runs for halves this pass touches; it can
// only raise what counts as consumed.
func NewAllocator(emp Employee, policy Policy, opening []CLBalance) (*Allocator, error) {
	if !policy.HasCasualLeave() {
		return nil, fmt.Errorf("attendance: policy %s has no casual leave quota", policy.Variant)
	}
	annual, err := policy.CL.AnnualQuota(emp)
	if err != nil {
		return nil, err
	}

	a := &Allocator{
		employee: emp,
		policyID: policy.ID(),
		balances: make(map[halfKey]CLBalance),
	}
	a.h1, a.h2 = SplitHalves(annual)

	for _, ob := range opening {
		k := halfKey{year: ob.Year(), half: ob.Half}
		b := a.open(k)
		b.Balance = b.WithConsumed(ob.TotalConsumed)
		a.balances[k] = b
	}
	return a, nil
}

func (a *Allocator) open(k halfKey) CLBalance {
	if b, ok := a.balances[k]; ok {
		return b
	}
	quota := a.h1
	if k.half == generic.H2 {
		quota = a.h2
	}
	return CLBalance{
		Half:    k.half,
		Balance: generic.NewBalance(a.employee.ID, a.policyID, k.half.Period(k.year), generic.Days(quota)),
	}
}

// Allocate classifies one absence on date: CasualLeave while the half
// containing date still has quota, LossOfPay after that. Spent CL is never
// given back.
func (a *Allocator) Allocate(date generic.TimePoint) DayCategory {
	k := keyOf(date)
	b := a.open(k)
	next, err := b.Consume(generic.Days(1))
	a.balances[k] = CLBalance{Half: b.Half, Balance: next}
	if err != nil {
		return LossOfPay
	}
	return CasualLeave
}

// Balances returns every half touched so far, oldest first.
func (a *Allocator) Balances() []CLBalance {
	out := make([]CLBalance, 0, len(a.balances))
	for _, b := range a.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Start.Before(out[j].Period.Start)
	})
	return out
}
