package binding

import "go.uber.org/zap"

// Option configures a Binding.
type Option func(*Binding)

// WithLogger sets the binding's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Binding) {
		if l != nil {
			b.log = l
		}
	}
}

// WithStrictBorrows makes views hold a borrow on their context. While any
// borrow is outstanding the context refuses ToLower, ToUpper and Close.
func WithStrictBorrows() Option {
	return func(b *Binding) {
		b.strict = true
	}
}
