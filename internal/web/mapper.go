package web

import (
	"context"
	"net/http"
)

// mapper is a generic HTTP handler that maps requests to target
// function calls and writes the output to the response.
type mapper[IN, OUT any] struct {
	s      *Server
	req    func(*http.Request) (IN, error)
	target func(context.Context, IN) (OUT, error)
	res    func(result[IN, OUT]) error
	fail   func(w http.ResponseWriter, r *http.Request, err error)
}

// result is the result of a succesful request.
// it contains all relevant data because we can't know
// in advance what we will need to construct a response.
type result[IN, OUT any] struct {
	s   *Server
	r   *http.Request
	w   http.ResponseWriter
	in  IN
	out OUT
}

// mapBoth creates a HTTP Handler that:
// 1. Maps the request to a value of input type IN.
// 2. Calls the target func with that value.
// 3. Passes the output of type OUT to the response func, by default this
// redirects back to the request path.
//
// Errors are written using the server error handler unless onFail is used.
func mapBoth[IN, OUT any](s *Server, targetFunc func(context.Context, IN) (OUT, error)) *mapper[IN, OUT] {
	return &mapper[IN, OUT]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return defaultRequest[IN](s, r)
		},
		target: targetFunc,
		res: func(r result[IN, OUT]) error {
			http.Redirect(r.w, r.r, r.r.URL.Path, http.StatusSeeOther)
			return nil
		},
		fail: s.handleError,
	}
}

// mapRequest is mapBoth for target funcs without output.
func mapRequest[IN any](s *Server, targetFunc func(context.Context, IN) error) *mapper[IN, struct{}] {
	return mapBoth(s, func(ctx context.Context, in IN) (struct{}, error) {
		return struct{}{}, targetFunc(ctx, in)
	})
}

// mapResponse is mapBoth for target funcs without input.
func mapResponse[OUT any](s *Server, targetFunc func(context.Context) (OUT, error)) *mapper[struct{}, OUT] {
	m := mapBoth(s, func(ctx context.Context, _ struct{}) (OUT, error) {
		return targetFunc(ctx)
	})
	m.req = func(*http.Request) (struct{}, error) {
		return struct{}{}, nil
	}
	return m
}

// response overwrites the function that writes the output to the response.
func (e *mapper[IN, OUT]) response(fn func(result[IN, OUT]) error) *mapper[IN, OUT] {
	e.res = fn
	return e
}

// onFail overwrites the function that handles request mapping and target errors.
func (e *mapper[IN, OUT]) onFail(fn func(w http.ResponseWriter, r *http.Request, err error)) *mapper[IN, OUT] {
	e.fail = fn
	return e
}

func (e *mapper[IN, OUT]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := e.req(r)
	if err != nil {
		e.fail(w, r, err)
		return
	}

	out, err := e.target(r.Context(), in)
	if err != nil {
		e.fail(w, r, err)
		return
	}

	err = e.res(result[IN, OUT]{
		s:   e.s,
		r:   r,
		w:   w,
		in:  in,
		out: out,
	})
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}
}
