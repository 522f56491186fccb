package shared

import "sort"

// Transition is one row of a transition table. An empty To marks an operation
// that does not change status but is still only legal from the From states.
type Transition[S ~string] struct {
	Op   string
	From []S
	To   S
}

// ChangesStatus reports whether the operation moves the aggregate to another status
func (t Transition[S]) ChangesStatus() bool {
	return t.To != ""
}

// TransitionTable is the finite {fromStatus, operation} guard for one aggregate type.
// It is pure: it never performs I/O and only ever reports IllegalStateTransitionError.
type TransitionTable[S ~string] struct {
	aggregateType string
	ops           map[string]Transition[S]
	terminal      map[S]bool
}

// NewTransitionTable builds a table from its rows
func NewTransitionTable[S ~string](aggregateType string, rows ...Transition[S]) *TransitionTable[S] {
	t := &TransitionTable[S]{
		aggregateType: aggregateType,
		ops:           make(map[string]Transition[S], len(rows)),
		terminal:      make(map[S]bool),
	}
	for _, row := range rows {
		t.ops[row.Op] = row
	}
	return t
}

// WithTerminal marks states that accept no further status-changing operations
func (t *TransitionTable[S]) WithTerminal(states ...S) *TransitionTable[S] {
	for _, s := range states {
		t.terminal[s] = true
	}
	return t
}

// Check decides whether op may run from current. noop is true when a
// status-changing op is re-applied while already in its target status.
func (t *TransitionTable[S]) Check(current S, op string) (row Transition[S], noop bool, err error) {
	row, ok := t.ops[op]
	if !ok {
		return row, false, &IllegalStateTransitionError{
			AggregateType: t.aggregateType,
			Operation:     op,
			Current:       string(current),
			AllowedFrom:   []string{},
		}
	}

	if row.ChangesStatus() && current == row.To {
		return row, true, nil
	}

	for _, from := range row.From {
		if from == current {
			return row, false, nil
		}
	}

	allowed := make([]string, len(row.From))
	for i, from := range row.From {
		allowed[i] = string(from)
	}
	return row, false, &IllegalStateTransitionError{
		AggregateType: t.aggregateType,
		Operation:     op,
		Current:       string(current),
		AllowedFrom:   allowed,
	}
}

// Allowed reports whether op would be accepted (including as a no-op) from current
func (t *TransitionTable[S]) Allowed(current S, op string) bool {
	_, _, err := t.Check(current, op)
	return err == nil
}

// AllowedOps lists the operations that are legal from current, sorted by name
func (t *TransitionTable[S]) AllowedOps(current S) []string {
	ops := make([]string, 0, len(t.ops))
	for op := range t.ops {
		if t.Allowed(current, op) {
			ops = append(ops, op)
		}
	}
	sort.Strings(ops)
	return ops
}

// IsTerminal reports whether s was declared terminal
func (t *TransitionTable[S]) IsTerminal(s S) bool {
	return t.terminal[s]
}

// Ops lists every operation in the table, sorted by name
func (t *TransitionTable[S]) Ops() []string {
	ops := make([]string, 0, len(t.ops))
	for op := range t.ops {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
