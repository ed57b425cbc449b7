// Package scope bridges actors to short-lived resource scopes.
//
// A [Factory] opens one [Handle] per unit of work from a [Provider] (for
// example a store that begins a transaction). The handle is completed on
// success and closed exactly once: a completed handle commits, any other
// handle rolls back.
//
//	h, err := f.Open(ctx)
//	if err != nil {
//	    return err // wraps ErrUnavailable
//	}
//	defer h.Close(ctx)
//	if err := work(h.Resource()); err != nil {
//	    return err
//	}
//	h.Complete()
//	return h.Close(ctx)
package scope
