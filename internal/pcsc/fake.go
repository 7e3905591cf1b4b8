package pcsc

import (
	"errors"
	"fmt"
)

// FakeContext is an in-memory Context used to exercise callers without hardware
type FakeContext struct {
	Readers  []string
	Card     *FakeCard
	ListErr  error
	Released bool
}

func (f *FakeContext) ListReaders() ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Readers, nil
}

func (f *FakeContext) Connect(reader string) (Card, error) {
	if f.Card == nil {
		return nil, fmt.Errorf("failed to connect to card: no card in %s", reader)
	}
	f.Card.Reader = reader
	return f.Card, nil
}

func (f *FakeContext) Release() error {
	f.Released = true
	return nil
}

// FakeCard replays scripted responses and records every transmitted APDU.
// When Responses runs out, Default is returned.
type FakeCard struct {
	Reader       string
	Atr          []byte
	Responses    [][]byte
	Default      []byte
	Sent         [][]byte
	TransmitErr  error
	Disconnected bool
}

func (f *FakeCard) Transmit(cmd []byte) ([]byte, error) {
	f.Sent = append(f.Sent, append([]byte(nil), cmd...))
	if f.TransmitErr != nil {
		return nil, f.TransmitErr
	}
	if len(f.Responses) == 0 {
		if f.Default == nil {
			return nil, errors.New("transmission failed: no response scripted")
		}
		return f.Default, nil
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	return resp, nil
}

func (f *FakeCard) ATR() ([]byte, error) {
	return f.Atr, nil
}

func (f *FakeCard) Disconnect() error {
	f.Disconnected = true
	return nil
}
