package pcsc

import (
	"errors"
	"fmt"

	"github.com/ebfe/scard"
	"github.com/jenish-rudani/nfctool/internal/utils/log"
)

// ErrNoReaders is returned when no reader is connected to the host
var ErrNoReaders = errors.New("no readers available")

// Context is the reader enumeration service
type Context interface {
	ListReaders() ([]string, error)
	Connect(reader string) (Card, error)
	Release() error
}

// Card is one open connection to the card in a reader
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	ATR() ([]byte, error)
	Disconnect() error
}

// scardContext implements Context over the system PC/SC daemon
type scardContext struct {
	ctx *scard.Context
}

// NewContext establishes a PC/SC context
func NewContext() (Context, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish context: %w", err)
	}
	return &scardContext{ctx: ctx}, nil
}

func (c *scardContext) ListReaders() ([]string, error) {
	readers, err := c.ctx.ListReaders()
	if err == scard.ErrNoReadersAvailable {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	return readers, nil
}

func (c *scardContext) Connect(reader string) (Card, error) {
	card, err := c.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to card: %w", err)
	}
	return &scardCard{card: card, reader: reader}, nil
}

func (c *scardContext) Release() error {
	return c.ctx.Release()
}

type scardCard struct {
	card   *scard.Card
	reader string
}

func (c *scardCard) Transmit(cmd []byte) ([]byte, error) {
	log.Debugf("%s >> % X", c.reader, cmd)
	resp, err := c.card.Transmit(cmd)
	if err != nil {
		return nil, fmt.Errorf("transmission failed: %w", err)
	}
	log.Debugf("%s << % X", c.reader, resp)
	return resp, nil
}

func (c *scardCard) ATR() ([]byte, error) {
	status, err := c.card.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get card status: %w", err)
	}
	return status.Atr, nil
}

func (c *scardCard) Disconnect() error {
	return c.card.Disconnect(scard.LeaveCard)
}

// OpenFirst picks the first enumerated reader and connects to its card.
// The returned Card must be disconnected by the caller.
func OpenFirst(ctx Context) (Card, error) {
	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, err
	}
	if len(readers) == 0 {
		return nil, ErrNoReaders
	}
	for i, r := range readers {
		log.Debugf("reader %v: %s", i, r)
	}
	log.With("reader", readers[0]).Info("using reader")
	return ctx.Connect(readers[0])
}
