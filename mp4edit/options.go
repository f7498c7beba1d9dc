package mp4edit

import "github.com/mattetti/mp4edit/container"

// Option tunes loading and writing.
type Option func(*options)

type options struct {
	read      container.ReadOptions
	overwrite bool
}

func newOptions(opts []Option) options {
	o := options{read: container.DefaultReadOptions, overwrite: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithReadOptions sets the buffering used when reading inputs.
func WithReadOptions(read container.ReadOptions) Option {
	return func(o *options) { o.read = read }
}

// WithOverwrite controls whether Output replaces an existing destination.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) { o.overwrite = overwrite }
}
