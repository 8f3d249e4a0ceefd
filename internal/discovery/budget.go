package discovery

// Budget is the cross-source cap on new items for one discovery run. It is
// shared by pointer across the per-source paginators so a later source
// observes an earlier source's contribution. Sources run strictly
// sequentially, so no locking is needed; the budget is scoped to one run,
// never global.
type Budget struct {
	target int
	found  int
}

// NewBudget creates a budget for the given target new-item count.
func NewBudget(target int) *Budget {
	return &Budget{target: target}
}

// Add records n newly found items.
func (b *Budget) Add(n int) {
	if b == nil || n <= 0 {
		return
	}
	b.found += n
}

// Exhausted reports whether the target has been reached. Once true, no
// paginator may issue another page request for this run.
func (b *Budget) Exhausted() bool {
	return b != nil && b.target > 0 && b.found >= b.target
}

// Found returns the cumulative new-item count.
func (b *Budget) Found() int {
	if b == nil {
		return 0
	}
	return b.found
}

// Target returns the configured target.
func (b *Budget) Target() int {
	if b == nil {
		return 0
	}
	return b.target
}
