package attendance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// CL LEDGER - Carrying consumption between monthly runs
// =============================================================================

// ConsumptionTransactions turns every CasualLeave day of a result into a
// ledger entry. The idempotency key is per employee and day, so persisting
// the same run twice writes nothing new.
func ConsumptionTransactions(res ClassifyResult, runID string, at generic.TimePoint) []generic.Transaction {
	var txs []generic.Transaction
	for _, d := range res.Days {
		if d.Category != CasualLeave {
			continue
		}
		txs = append(txs, generic.Transaction{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       res.Employee.ID,
			PolicyID:       res.Policy.ID(),
			ResourceType:   ResourceCasualLeave,
			EffectiveAt:    d.Date,
			Delta:          generic.Days(-1),
			Type:           generic.TxConsumption,
			ReferenceID:    runID,
			Reason:         "absence converted to casual leave",
			IdempotencyKey: consumptionKey(res.Employee.ID, d.Date),
			CreatedAt:      at,
		})
	}
	return txs
}

func consumptionKey(id generic.EntityID, date generic.TimePoint) string {
	return fmt.Sprintf("cl|%s|%s", id, date)
}

// RecordConsumption appends the CL consumption of all results and returns
// how many transactions were new to the ledger.
func RecordConsumption(ctx context.Context, ledger generic.Ledger, results []ClassifyResult, runID string) (int, error) {
	now := generic.Today()
	var txs []generic.Transaction
	for _, res := range results {
		txs = append(txs, ConsumptionTransactions(res, runID, now)...)
	}
	if len(txs) == 0 {
		return 0, nil
	}
	written, err := ledger.AppendBatch(ctx, txs)
	if err != nil {
		return 0, fmt.Errorf("record casual leave consumption: %w", err)
	}
	return written, nil
}

// OpeningBalances replays consumption recorded before window.Start for each
// half-year the window touches. Consumption inside the window is ignored
// so that re-running a window classifies it the same way.
func OpeningBalances(ctx context.Context, ledger generic.Ledger, emp Employee, policy Policy, window generic.Period) ([]CLBalance, error) {
	if !policy.HasCasualLeave() {
		return nil, nil
	}

	var out []CLBalance
	for _, piece := range generic.PeriodHalfYear.Split(window) {
		half := generic.HalfYearOf(piece.Start)
		full := half.Period(piece.Start.Year())
		if !full.Start.Before(window.Start) {
			continue
		}

		quota, err := policy.CL.HalfQuota(emp, half)
		if err != nil {
			return nil, err
		}
		before := generic.Period{Start: full.Start, End: window.Start.AddDays(-1)}
		consumed, err := ledger.ConsumedIn(ctx, emp.ID, policy.ID(), before)
		if err != nil {
			return nil, fmt.Errorf("load casual leave consumption for %s: %w", emp.ID, err)
		}
		if consumed.IsZero() {
			continue
		}

		b := generic.NewBalance(emp.ID, policy.ID(), full, generic.Days(quota)).WithConsumed(consumed)
		out = append(out, CLBalance{Half: half, Balance: b})
	}
	return out, nil
}
