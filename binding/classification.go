package binding

// Classification is the caller-visible state of a context.
//
// The native queries are not complements of each other: after some transform
// sequences neither holds. Unspecified is a legitimate outcome, not an error.
type Classification uint8

const (
	Unspecified Classification = iota
	Lower
	Upper
)

func (c Classification) String() string {
	switch c {
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	default:
		return "unspecified"
	}
}

// classify maps the two native answers to a Classification.
// Both holding at once is impossible for a sane library and is Unspecified.
func classify(lower, upper bool) Classification {
	switch {
	case lower && !upper:
		return Lower
	case upper && !lower:
		return Upper
	default:
		return Unspecified
	}
}
