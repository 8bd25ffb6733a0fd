package model

// Outcome is the terminal state of one package evaluation.
type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeFail Outcome = "fail"
	// OutcomeSkipped marks packages excluded by configuration before
	// scheduling. The scheduler itself never emits it.
	OutcomeSkipped Outcome = "skipped"
)
