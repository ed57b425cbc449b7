package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoHandler is returned for a message type nobody registered.
	ErrNoHandler = errors.New("no handler for msg")
	// ErrDuplicateHandler fails actor init when two handlers claim one type.
	ErrDuplicateHandler = errors.New("duplicate handler")
)

// defaultMsgType is the registration key of the fallback handler.
const defaultMsgType = "*"

type (
	emptyOut struct{}

	// Reply carries the outcome of one message. Exactly one Reply is sent for
	// every accepted message that asked for one.
	Reply struct {
		Result any
		Error  error
	}

	// Envelope is a message in the mailbox. Reply must be buffered; the actor
	// never blocks on it.
	Envelope struct {
		Type  string
		Data  []byte // JSON payload
		Reply chan Reply
	}

	// RawHandler is what the actor loop drives. Use [TypedHandlers] to build one.
	RawHandler interface {
		// InitHandler runs once in the actor goroutine before the first message.
		InitHandler(hc HandlerCtx) error
		HandleMessage(hc HandlerCtx, msgType string, data []byte) (any, error)
	}

	msgHandler  func(hc HandlerCtx, msg any) (any, error)
	initHandler func(hc HandlerCtx) error

	HandlerRegistrar interface {
		Register(msgType string, newMsg func() any, handle func(HandlerCtx, any) (any, error), initFn func(HandlerCtx) error)
	}

	// HandlerRegistration adds handlers to a registrar. Build them with
	// [HandleMsg], [HandleRequest], [DefaultHandler] and [Init].
	HandlerRegistration func(registrar HandlerRegistrar)
)

type route struct {
	newMsg func() any
	handle msgHandler
}

// TypedHandlerRegistry dispatches JSON messages to typed handlers. It is
// filled by TypedHandlers and read only by the actor goroutine afterwards.
type TypedHandlerRegistry struct {
	routes     map[string]route
	fallback   msgHandler
	inits      []initHandler
	duplicates []string
}

// TypedHandlers builds a registry from the given registrations.
//
//	h := actor.TypedHandlers(
//	    actor.HandleRequest[GetBook, BookResult](getBook),
//	    actor.HandleMsg[Audit](audit),
//	)
func TypedHandlers(registrations ...HandlerRegistration) *TypedHandlerRegistry {
	r := &TypedHandlerRegistry{routes: make(map[string]route)}
	for _, reg := range registrations {
		reg(r)
	}
	return r
}

// Register implements HandlerRegistrar. An empty msgType only adds init.
func (r *TypedHandlerRegistry) Register(msgType string, newMsg func() any, handle func(HandlerCtx, any) (any, error), initFn func(HandlerCtx) error) {
	if initFn != nil {
		r.inits = append(r.inits, initFn)
	}
	switch {
	case msgType == "" || handle == nil:
	case msgType == defaultMsgType:
		if r.fallback != nil {
			r.duplicates = append(r.duplicates, msgType)
		}
		r.fallback = handle
	default:
		if _, ok := r.routes[msgType]; ok {
			r.duplicates = append(r.duplicates, msgType)
		}
		r.routes[msgType] = route{newMsg: newMsg, handle: handle}
	}
}

func (r *TypedHandlerRegistry) InitHandler(hc HandlerCtx) error {
	if len(r.duplicates) > 0 {
		return fmt.Errorf("%w: %v", ErrDuplicateHandler, r.duplicates)
	}
	for _, initFn := range r.inits {
		if err := initFn(hc); err != nil {
			return fmt.Errorf("failed to init handler: %w", err)
		}
	}
	return nil
}

func (r *TypedHandlerRegistry) HandleMessage(hc HandlerCtx, msgType string, data []byte) (any, error) {
	rt, ok := r.routes[msgType]
	if !ok {
		if r.fallback != nil {
			return r.fallback(hc, fmt.Sprintf("msg_type=%s", msgType))
		}
		return nil, fmt.Errorf("%w: msg_type=%s", ErrNoHandler, msgType)
	}

	msg := rt.newMsg()
	if len(data) > 0 {
		if err := json.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msgType, err)
		}
	}
	return rt.handle(hc, msg)
}

// DefaultHandler handles every message type without a dedicated handler. It
// receives a description of the message, not its payload.
func DefaultHandler(h func(HandlerCtx, any) (any, error)) HandlerRegistration {
	return func(r HandlerRegistrar) { r.Register(defaultMsgType, nil, h, nil) }
}

// Init runs f in the actor goroutine before the first message is handled. A
// failing init stops the actor.
func Init(f func(HandlerCtx) error) HandlerRegistration {
	return func(r HandlerRegistrar) { r.Register("", nil, nil, f) }
}

// HandleMsg registers a handler for IN that produces no result.
func HandleMsg[IN any](h func(hc HandlerCtx, msg IN) error) HandlerRegistration {
	return HandleRequest[IN, emptyOut](func(hc HandlerCtx, msg IN) (*emptyOut, error) {
		return nil, h(hc, msg)
	})
}

// HandleRequest registers a request handler for IN. The message type is
// IN's MsgType() when it has one, its qualified Go type name otherwise.
func HandleRequest[IN any, OUT any](h func(hc HandlerCtx, msg IN) (*OUT, error)) HandlerRegistration {
	return func(r HandlerRegistrar) {
		r.Register(
			msgTypeFor[IN](),
			func() any { return new(IN) },
			func(hc HandlerCtx, msg any) (any, error) {
				in, ok := msg.(*IN)
				if !ok {
					return nil, fmt.Errorf("invalid request message type: %T", msg)
				}
				out, err := h(hc, *in)
				if err != nil {
					return nil, err
				}
				return out, nil
			},
			nil,
		)
	}
}

type sender interface {
	Send(ctx context.Context, msg Envelope) error
}

// Request sends in and waits for the typed result. If ctx ends after the
// message was accepted the caller stops waiting; the actor still handles it.
func Request[IN any, OUT any](ctx context.Context, s sender, in IN) (*OUT, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgTypeFor[IN](), err)
	}
	res, err := RawRequest(ctx, s, msgTypeFor[IN](), data)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	out, ok := res.(*OUT)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: got=%T want=*%s", res, msgTypeFor[OUT]())
	}
	return out, nil
}

// Publish sends in and waits until it was handled, discarding any result.
func Publish[IN any](ctx context.Context, s sender, in IN) error {
	_, err := Request[IN, emptyOut](ctx, s, in)
	return err
}

// RawRequest sends an already encoded message and waits for its reply.
func RawRequest(ctx context.Context, s sender, msgType string, data []byte) (any, error) {
	replyCh := make(chan Reply, 1)
	if err := s.Send(ctx, Envelope{Type: msgType, Data: data, Reply: replyCh}); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-replyCh:
		return reply.Result, reply.Error
	}
}
