package advisory

// OutcomeKind tags how a stage produced its value.
type OutcomeKind int

// Outcome kinds.
const (
	KindOK OutcomeKind = iota
	KindFallback
	KindFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindFallback:
		return "fallback"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is a stage result: a value, a substituted fallback value with the
// reason it was used, or an error.
type Outcome[T any] struct {
	Value  T
	Err    error
	Reason string
	Kind   OutcomeKind
}

// OK wraps a value produced normally.
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Kind: KindOK}
}

// Fallback wraps a substituted value and why it was substituted.
func Fallback[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Reason: reason, Kind: KindFallback}
}

// Failed wraps a stage error.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err, Kind: KindFailed}
}

// Unwrap returns the value, or the error for a failed outcome.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.Kind == KindFailed {
		var zero T
		return zero, o.Err
	}
	return o.Value, nil
}

// IsFallback reports whether the value was substituted.
func (o Outcome[T]) IsFallback() bool {
	return o.Kind == KindFallback
}
