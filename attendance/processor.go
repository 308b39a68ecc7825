package attendance

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// BATCH - Input contract from the storage collaborator
// =============================================================================

// Batch is a fully materialized set of employees and their marks.
type Batch struct {
	Employees map[generic.EntityID]Employee
	Marks     map[generic.EntityID][]RawDayMark

	// Opening holds CL consumption from earlier runs, keyed by employee.
	Opening map[generic.EntityID][]CLBalance
}

// EmployeeFailure is one employee the batch could not classify.
type EmployeeFailure struct {
	EmployeeID generic.EntityID
	Err        error
}

// BatchResult holds successes and failures, each sorted by employee ID.
type BatchResult struct {
	Results  []ClassifyResult
	Failures []EmployeeFailure
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor classifies a batch. Employees are independent: each one gets
// its own policy, counter and allocator, and a failure only drops that
// employee from the results.
type Processor struct {
	Options PolicyOptions
	Workers int
	Logger  *logrus.Logger
}

func NewProcessor(opts PolicyOptions, workers int, logger *logrus.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Processor{Options: opts, Workers: workers, Logger: logger}
}

type outcome struct {
	result ClassifyResult
	err    error
	done   bool
}

// Process classifies every employee that appears in the batch. The only
// error it returns is the context's; everything else is a per-employee
// failure in the result.
func (p *Processor) Process(ctx context.Context, batch Batch) (BatchResult, error) {
	ids := batchIDs(batch)
	outcomes := make([]outcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.ProcessEmployee(batch, id)
			outcomes[i] = outcome{result: res, err: err, done: true}
			return nil
		})
	}
	waitErr := g.Wait()

	var out BatchResult
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err != nil {
			p.Logger.WithFields(logrus.Fields{
				"employee_id": ids[i],
				"error":       o.err.Error(),
			}).Warn("employee classification failed")
			out.Failures = append(out.Failures, EmployeeFailure{EmployeeID: ids[i], Err: o.err})
			continue
		}
		out.Results = append(out.Results, o.result)
	}

	p.Logger.WithFields(logrus.Fields{
		"employees": len(ids),
		"succeeded": len(out.Results),
		"failed":    len(out.Failures),
	}).Info("attendance batch classified")

	if waitErr != nil {
		return out, waitErr
	}
	return out, ctx.Err()
}

// ProcessEmployee selects the policy and classifies one employee.
func (p *Processor) ProcessEmployee(batch Batch, id generic.EntityID) (ClassifyResult, error) {
	emp, ok := batch.Employees[id]
	if !ok {
		return ClassifyResult{}, fmt.Errorf("%w: employee %s has marks but no metadata", generic.ErrEntityNotFound, id)
	}
	policy, err := SelectPolicy(emp, p.Options)
	if err != nil {
		return ClassifyResult{}, err
	}
	return Classify(emp, policy, batch.Marks[id], batch.Opening[id])
}

func batchIDs(batch Batch) []generic.EntityID {
	seen := make(map[generic.EntityID]bool, len(batch.Employees))
	ids := make([]generic.EntityID, 0, len(batch.Employees))
	for id := range batch.Employees {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range batch.Marks {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
