package nodes

import (
	"context"
	"errors"

	"github.com/paperrag/agent/internal/llm"
)

// fakeClient is a minimal llm.Client test double. structured is consumed
// in order by CompleteStructured; once exhausted (or if structuredErr is
// set) it returns an error, exercising each node's retry-once fallback.
type fakeClient struct {
	structured    []string
	structuredErr error

	streamTokens []string
	streamErr    error
}

func (f *fakeClient) Complete(ctx context.Context, sys, user string, opts llm.CompletionOpts) (string, error) {
	return "", nil
}

func (f *fakeClient) CompleteStructured(ctx context.Context, sys, user string, opts llm.CompletionOpts) (string, error) {
	if f.structuredErr != nil {
		return "", f.structuredErr
	}
	if len(f.structured) == 0 {
		return "", errors.New("fakeClient: no more structured responses queued")
	}
	r := f.structured[0]
	f.structured = f.structured[1:]
	return r, nil
}

func (f *fakeClient) Stream(ctx context.Context, sys, user string, opts llm.CompletionOpts) (<-chan string, <-chan error) {
	tokCh := make(chan string, len(f.streamTokens)+1)
	errCh := make(chan error, 1)
	for _, t := range f.streamTokens {
		tokCh <- t
	}
	close(tokCh)
	if f.streamErr != nil {
		errCh <- f.streamErr
	}
	close(errCh)
	return tokCh, errCh
}
