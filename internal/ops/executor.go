package ops

import (
	"go.uber.org/zap"
)

const (
	// DefaultChunkSize is how many bytes are copied between progress ticks.
	DefaultChunkSize = 8 * 1024

	// FallbackDirName names copied directories whose source has no name.
	FallbackDirName = "Folder"
)

// Executor runs transfers and deletions against fsnode stores. It keeps no
// state between calls; everything about one operation lives in the
// Progress passed in.
type Executor struct {
	chunkSize int
	log       *zap.Logger
}

type Option func(*Executor)

// WithChunkSize sets the streaming buffer size. Values below one are ignored.
func WithChunkSize(size int) Option {
	return func(ex *Executor) {
		if size > 0 {
			ex.chunkSize = size
		}
	}
}

// WithLogger sets where per item failures are logged.
func WithLogger(log *zap.Logger) Option {
	return func(ex *Executor) {
		if log != nil {
			ex.log = log
		}
	}
}

func NewExecutor(opts ...Option) *Executor {
	ex := &Executor{
		chunkSize: DefaultChunkSize,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}
