package store

import "log/slog"

// DefaultMaxNodes bounds the number of value nodes (arrays, dictionaries,
// streams and leaves) a walk may visit inside a single object.
const DefaultMaxNodes = 1 << 20

// Option configures a Store
type Option func(*Store)

// WithMaxNodes sets the per-object node limit for graph walks (default:
// DefaultMaxNodes). Values nested deeper or wider than this, including values
// that contain themselves, make the walk fail with ErrTraversalLimit.
func WithMaxNodes(n int) Option {
	return func(s *Store) {
		s.maxNodes = n
	}
}

// WithMaxObjects limits the number of entries garbage collection and
// renumbering will process. Zero means no limit.
func WithMaxObjects(n int) Option {
	return func(s *Store) {
		s.maxObjects = n
	}
}

// WithLogger sets the logger used for collection and renumbering summaries
// (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithAutoDelete sets the initial auto-delete flag. See Store.SetAutoDelete.
func WithAutoDelete(autoDelete bool) Option {
	return func(s *Store) {
		s.autoDelete = autoDelete
	}
}

// RenumberOption configures RenumberObjects
type RenumberOption func(*renumberConfig)

type renumberConfig struct {
	keepUnreachable bool
}

// KeepUnreachable makes RenumberObjects skip garbage collection. Objects not
// reachable from the trailer keep their place in the store and are numbered
// after the reachable ones.
func KeepUnreachable() RenumberOption {
	return func(c *renumberConfig) {
		c.keepUnreachable = true
	}
}
