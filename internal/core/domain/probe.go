package domain

// ProbeStatus is the outcome class of one probe invocation.
type ProbeStatus int

const (
	ProbeOK ProbeStatus = iota
	ProbeSkipped
	ProbeFailed
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeOK:
		return "ok"
	case ProbeSkipped:
		return "skipped"
	case ProbeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind classifies a probe failure. Failures are recorded on the
// report and never abort a scan.
type FailureKind string

const (
	FailTimeout     FailureKind = "timeout"
	FailRateLimited FailureKind = "rate_limited"
	FailAuthInvalid FailureKind = "auth_invalid"
	FailUpstream5xx FailureKind = "upstream_5xx"
	FailMalformed   FailureKind = "malformed"
)

// ProbeOutcome is what one probe invocation produced. Absence of
// evidence is ProbeOK with an empty Signals slice, not a failure.
// Skipped means a prerequisite was absent or the subject could not be
// resolved at that source; it is a normal outcome.
type ProbeOutcome struct {
	Signals    []Signal
	Status     ProbeStatus
	SkipReason string      // set when Status == ProbeSkipped
	Failure    FailureKind // set when Status == ProbeFailed
}

// Ok wraps signals in a successful outcome.
func Ok(signals []Signal) ProbeOutcome {
	return ProbeOutcome{Signals: signals, Status: ProbeOK}
}

// Skip reports a normal non-result (missing credential, org not found).
func Skip(reason string) ProbeOutcome {
	return ProbeOutcome{Status: ProbeSkipped, SkipReason: reason}
}

// Fail reports a probe failure of the given kind.
func Fail(kind FailureKind) ProbeOutcome {
	return ProbeOutcome{Status: ProbeFailed, Failure: kind}
}
