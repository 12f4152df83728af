package llm

import (
	"context"
	"io"
	"iter"

	"github.com/helmcode/codescribe/pkg/model"
)

// Stream is a finite, non-restartable sequence of text deltas from one
// provider call. Only text is yielded; control events are dropped by the
// provider decoders. Close must be called when done.
type Stream struct {
	ctx      context.Context
	src      chunkSource
	config   model.DocTypeConfig
	attempts int
	done     bool
}

// Recv returns the next text delta, io.EOF after the last one, or the
// context error once the caller cancelled.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		s.finish()
		return "", err
	}

	chunk, err := s.src.next()
	if err != nil {
		s.finish()
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return chunk, nil
}

// Chunks adapts Recv to a range-over-func sequence. Iteration ends at the
// end of the stream or after yielding the first error.
func (s *Stream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			chunk, err := s.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Usage is complete only after Recv returned io.EOF.
func (s *Stream) Usage() model.Usage {
	return s.src.usage()
}

// Config is the effective configuration used for the call.
func (s *Stream) Config() model.DocTypeConfig {
	return s.config
}

// Attempts is the number of tries needed to open the stream.
func (s *Stream) Attempts() int {
	return s.attempts
}

func (s *Stream) Close() error {
	s.done = true
	return s.src.close()
}

func (s *Stream) finish() {
	s.done = true
}
