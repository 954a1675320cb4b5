package resolution

// Source records which store supplied a field of a View.
type Source string

const (
	FromLedger  Source = "ledger"
	FromContent Source = "content"
	FromIndex   Source = "index"
	Missing     Source = "missing"
)

// Sourced is a value tagged with its provenance.
type Sourced[T comparable] struct {
	Value  T      `json:"value"`
	Source Source `json:"source"`
}

// IsMissing reports whether no store supplied the value.
func (s Sourced[T]) IsMissing() bool {
	return s.Source == Missing || s.Source == ""
}

func ledgerValue[T comparable](v T) Sourced[T] {
	return Sourced[T]{Value: v, Source: FromLedger}
}

// pick returns the first non-zero candidate in precedence order.
func pick[T comparable](candidates ...Sourced[T]) Sourced[T] {
	var zero T
	for _, c := range candidates {
		if c.Source != "" && c.Source != Missing && c.Value != zero {
			return c
		}
	}
	return Sourced[T]{Source: Missing}
}

func from[T comparable](src Source, v T, ok bool) Sourced[T] {
	if !ok {
		return Sourced[T]{Source: Missing}
	}
	return Sourced[T]{Value: v, Source: src}
}
