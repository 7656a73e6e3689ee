package channel

import (
	"context"

	"github.com/asimzulfiqar/LifeLogger/pkg/bus"
)

// Handler processes one inbound event and returns the reply to echo back.
type Handler func(context.Context, bus.Event) (bus.Reply, error)

// Adapter bridges one external transport (for example Telegram) into LifeLogger.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
