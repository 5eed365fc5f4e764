package bridge

// ErrorKind classifies a failed dispatch.
type ErrorKind string

const (
	// InvalidRequest marks a missing or empty required parameter,
	// caught before any I/O.
	InvalidRequest ErrorKind = "invalid_request"
	// TransportUnavailable marks failure to obtain a healthy session
	// within the deadline.
	TransportUnavailable ErrorKind = "transport_unavailable"
	// TransportFailure marks an I/O error or a process spawn failure.
	TransportFailure ErrorKind = "transport_failure"
	// TimedOut marks a wait that exceeded the call budget.
	TimedOut ErrorKind = "timed_out"
	// ProtocolError marks output the framer could not interpret.
	ProtocolError ErrorKind = "protocol_error"
	// EvaluationError marks a runtime error reported by Pharo itself.
	EvaluationError ErrorKind = "evaluation_error"
)

// Error is the classified failure carried in a Result.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

// Reachable reports whether the target environment was reached: an
// EvaluationError means Pharo answered, everything else means the
// request never completed a round-trip.
func (e *Error) Reachable() bool { return e.Kind == EvaluationError }

// Result is the only shape returned to callers. Exactly one of Payload
// (with OK true) or Err (with OK false) is meaningful.
type Result struct {
	OK      bool
	Payload string
	Err     *Error
}

func ok(payload string) Result {
	return Result{OK: true, Payload: payload}
}

func fail(kind ErrorKind, msg string) Result {
	return Result{Err: &Error{Kind: kind, Message: msg}}
}
