package engine

import "github.com/mkarlsen/seatplanner/internal/model"

// BatchResult is the outcome of a fully applied batch, returned to the
// boundary layer for the commit attempt and the audit record.
type BatchResult struct {
	// Document is the new plan document with Version already set to the
	// stored version plus one.  It has not been committed yet.
	Document *model.PlanDocument

	// Applied is the number of operations applied, for the audit trail.
	Applied int

	// Kinds lists the operation kinds in batch order.
	Kinds []OpKind
}

// ApplyBatch applies an ordered list of operations against the stored
// document, all or nothing.
//
// The expected version is checked first: when it does not match the stored
// version the batch fails immediately with version_conflict and nothing is
// applied – the caller must refetch.  Otherwise operations run strictly in
// order; the first failure aborts the whole batch with the failing index
// recorded in the rejection, and the stored document is left untouched.
// On success the resulting document's version is the stored version plus
// exactly one, regardless of batch length.
//
// ApplyBatch only transforms detached copies.  Whether the result actually
// becomes the current document is decided by the repository's
// compare-and-swap commit, which is the sole serialization point between
// racing batches.
func ApplyBatch(planID uint64, stored *model.PlanDocument, expectedVersion uint64, ops []Operation) (*BatchResult, error) {
	if stored.Version != expectedVersion {
		return nil, VersionConflict(expectedVersion, stored.Version)
	}
	if len(ops) == 0 {
		return nil, Validationf("batch contains no operations")
	}
	doc := stored
	kinds := make([]OpKind, 0, len(ops))
	for i, op := range ops {
		next, err := Apply(planID, doc, op)
		if err != nil {
			if r, ok := AsRejection(err); ok {
				r.OpIndex = i
			}
			return nil, err
		}
		doc = next
		kinds = append(kinds, op.Kind())
	}
	doc.Version = stored.Version + 1
	return &BatchResult{Document: doc, Applied: len(ops), Kinds: kinds}, nil
}
