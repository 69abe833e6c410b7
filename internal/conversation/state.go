package conversation

// State is the controller's lifecycle state.
type State int

const (
	// Idle accepts new submissions.
	Idle State = iota
	// Submitting rejects new submissions until the current one settles.
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	}
	return "unknown"
}

// Outcome is how a submission settled.
type Outcome int

const (
	Pending Outcome = iota
	QuestionsReceived
	KitReceived
	ComparisonReceived
	Fallback
	RequestFailed
	// Discarded means the reply arrived after the view was reset and was dropped.
	Discarded
)

var outcomeNames = map[Outcome]string{
	Pending:            "pending",
	QuestionsReceived:  "questions",
	KitReceived:        "kit",
	ComparisonReceived: "comparison",
	Fallback:           "fallback",
	RequestFailed:      "failed",
	Discarded:          "discarded",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Succeeded reports whether the reply was dispatched to the view.
func (o Outcome) Succeeded() bool {
	switch o {
	case QuestionsReceived, KitReceived, ComparisonReceived, Fallback:
		return true
	}
	return false
}
