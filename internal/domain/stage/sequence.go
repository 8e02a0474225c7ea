package stage

import "fmt"

// SkipFunc reports whether a stage should be bypassed when computing a
// successor. A nil SkipFunc skips nothing.
type SkipFunc func(Stage) bool

// Sequence is an immutable, totally ordered list of pipeline stages.
// The production workflow is linear; the only branching is expressed
// through a SkipFunc at successor-lookup time, so a single Sequence
// value can be shared across the whole process.
type Sequence struct {
	stages []Stage
	index  map[Stage]int
}

// NewSequence creates a sequence from the given stages in order
func NewSequence(stages ...Stage) *Sequence {
	if len(stages) == 0 {
		panic("stage: sequence must contain at least one stage")
	}

	index := make(map[Stage]int, len(stages))
	for i, s := range stages {
		if _, dup := index[s]; dup {
			panic(fmt.Sprintf("stage: duplicate stage in sequence: %s", s))
		}
		index[s] = i
	}

	return &Sequence{
		stages: append([]Stage(nil), stages...),
		index:  index,
	}
}

// Default returns the canonical print-shop pipeline
func Default() *Sequence {
	return NewSequence(
		StageWaiting,
		StageDesign,
		StagePrintReady,
		StagePrinting,
		StageCut,
		StageCompleted,
		StageDelivered,
	)
}

// Contains returns true if the stage is a member of the sequence
func (q *Sequence) Contains(s Stage) bool {
	_, ok := q.index[s]
	return ok
}

// First returns the initial stage of the sequence
func (q *Sequence) First() Stage {
	return q.stages[0]
}

// IsTerminal returns true if the stage is the last stage of the sequence
func (q *Sequence) IsTerminal(s Stage) bool {
	i, ok := q.index[s]
	return ok && i == len(q.stages)-1
}

// Next returns the stage immediately following current. The second
// return value is false when current is the last stage or not a member
// of the sequence.
func (q *Sequence) Next(current Stage) (Stage, bool) {
	return q.NextSkipping(current, nil)
}

// NextSkipping returns the successor of current, walking past any stage
// for which skip returns true.
func (q *Sequence) NextSkipping(current Stage, skip SkipFunc) (Stage, bool) {
	i, ok := q.index[current]
	if !ok {
		return "", false
	}

	for j := i + 1; j < len(q.stages); j++ {
		if skip != nil && skip(q.stages[j]) {
			continue
		}
		return q.stages[j], true
	}
	return "", false
}

// Stages returns a copy of the ordered stage list
func (q *Sequence) Stages() []Stage {
	return append([]Stage(nil), q.stages...)
}
