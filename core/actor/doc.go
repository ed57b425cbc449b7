// Package actor provides a mailbox-based actor implementation for building
// concurrent, message-driven components.
//
// Each actor:
//   - Has an identity (Options.ID)
//   - Processes messages sequentially from its mailbox, in arrival order
//   - Recovers handler panics and keeps serving subsequent messages
//   - Can be paused, resumed, and stepped for debugging/testing
//   - Drains its mailbox on shutdown
//
// # Creating Actors
//
//	a := actor.New(actor.Options{ID: "books"}, actor.TypedHandlers(
//	    actor.HandleMsg[RestockCmd](func(hc actor.HandlerCtx, cmd RestockCmd) error {
//	        return nil
//	    }),
//	    actor.HandleRequest[GetBookQuery, Book](func(hc actor.HandlerCtx, q GetBookQuery) (*Book, error) {
//	        return &Book{ID: q.ID}, nil
//	    }),
//	))
//
// Messages are dispatched by type name to registered handlers:
//
//   - [HandleMsg] registers a one-way message handler
//   - [HandleRequest] registers a request-response handler
//   - [DefaultHandler] registers a fallback for unmatched message types
//   - [Init] registers initialization logic run when the actor starts
//
// A message type is the MsgType() of the Go type when it has one, its
// qualified type name otherwise. Registering two handlers for one type makes
// the actor fail on start with [ErrDuplicateHandler].
//
// # Sending Messages
//
//	book, err := actor.Request[GetBookQuery, Book](ctx, a, GetBookQuery{ID: "123"})
//	err := actor.Publish[RestockCmd](ctx, a, RestockCmd{ID: "123", Delta: 5})
//
// Every accepted message yields exactly one [Reply]. A caller whose context
// ends stops waiting, but the actor still handles the message once.
//
// # Lifecycle
//
// An actor moves through [StateStarting], [StateReady], [StateDraining] and
// [StateStopped]. [Actor.Drain] refuses new messages with [ErrStopped] and
// returns once the queued ones are handled. When the drain context ends
// first, the message in progress finishes and the remaining ones are answered
// with [ErrDropped].
//
//	a.Pause()  // Stop processing messages
//	a.Step()   // Process exactly one message
//	a.Resume() // Continue normal processing
//	a.Drain(ctx)
//	<-a.Done()
package actor
