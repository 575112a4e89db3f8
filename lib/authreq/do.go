package authreq

import "context"

type outcome struct {
	resp *Response
	err  error
}

// Do sends path through a new Manager built from opts and blocks until the
// request succeeds, fails, or ctx is done. opts.Listener is replaced.
//
// Giving up on ctx only stops waiting: challenges already handed to realm
// handlers stay queued until their resolution logic reports back.
func Do(ctx context.Context, opts Options, path string, ro *RequestOptions) (*Response, error) {
	done := make(chan outcome, 1)

	opts.Listener = ListenerFuncs{
		Success: func(resp *Response) { done <- outcome{resp: resp} },
		Failure: func(err error) { done <- outcome{err: err} },
	}

	m := New(opts)
	go m.SendRequest(ctx, path, ro)

	select {
	case o := <-done:
		return o.resp, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
