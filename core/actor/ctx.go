package actor

import (
	"context"
	"log/slog"
)

// HandlerCtx is passed to every handler. It is canceled when the actor stops.
type HandlerCtx interface {
	context.Context
	ActorID() string
	// MsgType is the type of the message being handled; empty during init.
	MsgType() string
	// Log is the actor's logger, tagged with the message type.
	Log() *slog.Logger
}

type handlerCtx struct {
	context.Context
	id      string
	msgType string
	log     *slog.Logger
}

func (hc *handlerCtx) ActorID() string   { return hc.id }
func (hc *handlerCtx) MsgType() string   { return hc.msgType }
func (hc *handlerCtx) Log() *slog.Logger { return hc.log }

// forMessage derives the context for one message.
func (hc *handlerCtx) forMessage(msgType string) *handlerCtx {
	return &handlerCtx{
		Context: hc.Context,
		id:      hc.id,
		msgType: msgType,
		log:     hc.log.With(slog.String("msg_type", msgType)),
	}
}

var _ HandlerCtx = (*handlerCtx)(nil)
