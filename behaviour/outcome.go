package behaviour

// Outcome is what a step reports to the sequencer.
type Outcome int

const (
	// Succeeded moves on to the next step.
	Succeeded Outcome = iota
	// Failed retries the step while its budget allows.
	Failed
	// Aborted stops the whole sequence.
	Aborted
	// Suspended re-invokes the step after a pause, without spending the budget.
	Suspended
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	case Suspended:
		return "suspended"
	}
	return "unknown"
}
