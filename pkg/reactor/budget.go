package reactor

// drainBudget bounds the number of reaction runs in one drain pass.
// It protects against reactions that keep re-dirtying each other, which
// would otherwise make a pass loop forever.
type drainBudget struct {
	limit int
	used  int
}

func newDrainBudget(limit int) *drainBudget {
	return &drainBudget{limit: limit}
}

// take reserves one run. It reports false once the limit is reached.
func (b *drainBudget) take() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// reset starts a new pass.
func (b *drainBudget) reset() {
	b.used = 0
}
