/*
batch.go - Bulk adjustment pipeline: normalize, snapshot, classify, apply

PURPOSE:
  Applies a list of independent per-item add/remove operations in one call.
  The pipeline is read-mostly: one multi-key snapshot classifies every
  entry, then one batched write applies the survivors.

CLASSIFICATION RULES:
  Add, existenceRequired=true:  absent items -> InvalidItems, excluded
  Add, existenceRequired=false: absent items allowed (create-on-write)
  Remove:                       absent, or snapshot quantity < requested
                                -> SkippedItems, excluded

DUPLICATE KEYS:
  Duplicate item names within one call are collapsed by summing their
  quantities before the snapshot. Two entries for the same key must not
  silently overwrite each other.

BEST-EFFORT SEMANTICS:
  Each per-item write is atomic; the batch as a whole is not transactional.
  An entry that loses a race between snapshot and apply fails its storage
  guard and is reported in SkippedItems like a classification skip.

SEE ALSO:
  - ledger.go: The handle this is built on
  - store.go: ApplyBatch contract
*/
package inventory

import "context"

// BatchProcessor applies bulk add/remove adjustments against the ledger.
type BatchProcessor struct {
	Ledger *StockLedger
}

func NewBatchProcessor(ledger *StockLedger) *BatchProcessor {
	return &BatchProcessor{Ledger: ledger}
}

// BulkAdjust processes operations in one snapshot-classify-apply pass.
// Per-line failures are itemized in the result; only a store fault aborts.
// On a mid-batch store fault the returned result still carries the applied
// count so far, alongside the error.
func (b *BatchProcessor) BulkAdjust(ctx context.Context, operations []StockOp, mode BatchMode, existenceRequired bool) (*BatchResult, error) {
	result := &BatchResult{}
	if len(operations) == 0 {
		return result, nil
	}

	ops := normalizeOps(operations)

	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.ItemName
	}
	snapshot, err := b.Ledger.Snapshot(ctx, names)
	if err != nil {
		return nil, err
	}

	deltas := make([]StockDelta, 0, len(ops))
	requested := make(map[string]int64, len(ops))
	for _, op := range ops {
		requested[op.ItemName] = op.Quantity
		item, exists := snapshot[op.ItemName]

		switch mode {
		case BatchAdd:
			if existenceRequired && !exists {
				result.InvalidItems = append(result.InvalidItems, op.ItemName)
				continue
			}
			deltas = append(deltas, StockDelta{
				ItemName: op.ItemName,
				Quantity: op.Quantity,
				Upsert:   !existenceRequired,
			})

		case BatchRemove:
			// Existence is implicitly required for removal.
			if !exists || item.Quantity < op.Quantity {
				result.SkippedItems = append(result.SkippedItems, op)
				continue
			}
			deltas = append(deltas, StockDelta{
				ItemName: op.ItemName,
				Quantity: -op.Quantity,
			})
		}
	}

	if len(deltas) == 0 {
		return result, nil
	}

	outcome, applyErr := b.Ledger.Apply(ctx, deltas)
	result.AppliedCount = outcome.Applied
	for _, name := range outcome.Failed {
		// Lost a race after the snapshot: report like a classification skip.
		result.SkippedItems = append(result.SkippedItems, StockOp{
			ItemName: name,
			Quantity: requested[name],
		})
	}
	if applyErr != nil {
		return result, applyErr
	}
	return result, nil
}

// normalizeOps collapses duplicate item names by summing their quantities,
// preserving first-seen order.
func normalizeOps(operations []StockOp) []StockOp {
	index := make(map[string]int, len(operations))
	ops := make([]StockOp, 0, len(operations))
	for _, op := range operations {
		if i, seen := index[op.ItemName]; seen {
			ops[i].Quantity += op.Quantity
			continue
		}
		index[op.ItemName] = len(ops)
		ops = append(ops, op)
	}
	return ops
}
