package models

// Reason explains why an event did not get a reply.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonSelfAuthored       Reason = "self_authored"
	ReasonLinkRequest        Reason = "link_request"
	ReasonThreadLimitReached Reason = "thread_limit_reached"
	ReasonDuplicateComment   Reason = "duplicate_comment"
	ReasonGenerationFailed   Reason = "generation_failed"
	ReasonAlreadyMaxed       Reason = "already_maxed"
)

// Decision is the admission verdict for one event.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "deny:" + string(d.Reason)
}

// OutcomeStatus is the terminal state of handling one event.
type OutcomeStatus string

const (
	OutcomeSent           OutcomeStatus = "sent"
	OutcomeSkipped        OutcomeStatus = "skipped"
	OutcomeDispatchFailed OutcomeStatus = "dispatch_failed"
)

// Outcome is what the orchestrator did with an event.
type Outcome struct {
	Status OutcomeStatus
	Reason Reason // set for skipped outcomes
	Reply  string // text that was sent, if any
	Err    error  // collaborator error, if any
}

func Skipped(reason Reason) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

// Label is a low-cardinality name for metrics and logs.
func (o Outcome) Label() string {
	if o.Status == OutcomeSkipped && o.Reason != ReasonNone {
		return string(o.Status) + ":" + string(o.Reason)
	}
	return string(o.Status)
}
