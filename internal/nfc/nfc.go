package nfc

import (
	"errors"
	"fmt"

	"github.com/jenish-rudani/nfctool/internal/atr"
	"github.com/jenish-rudani/nfctool/internal/pcsc"
	"github.com/jenish-rudani/nfctool/internal/utils/log"
	"github.com/status-im/keycard-go/apdu"
	"golang.org/x/text/encoding/charmap"
)

// ErrDataLength is returned when sector data is not exactly SectorSize bytes
var ErrDataLength = errors.New("data length must be 16 bytes per block")

// ErrUnexpectedStatus is returned when the card answers with anything but 90 00
type ErrUnexpectedStatus struct {
	Sw1, Sw2 uint8
}

func (e *ErrUnexpectedStatus) Error() string {
	return fmt.Sprintf("unexpected status word: %02X%02X", e.Sw1, e.Sw2)
}

// SectorAuthError reports a failed key A authentication of a sector
type SectorAuthError struct {
	Sector uint8
	Err    error
}

func (e *SectorAuthError) Error() string {
	return fmt.Sprintf("authentication failed for sector %d: %v", e.Sector, e.Err)
}

func (e *SectorAuthError) Unwrap() error { return e.Err }

// BlockWriteError reports the first block of a sector write that failed.
// Blocks before it stay written.
type BlockWriteError struct {
	Block uint8
	Err   error
}

func (e *BlockWriteError) Error() string {
	return fmt.Sprintf("writing failed for block %d: %v", e.Block, e.Err)
}

func (e *BlockWriteError) Unwrap() error { return e.Err }

// IsStatusError reports whether err comes from a status word rather than the transport
func IsStatusError(err error) bool {
	var sw *ErrUnexpectedStatus
	return errors.As(err, &sw)
}

// CardReader sends reader and MIFARE Classic commands to the card in one reader
type CardReader struct {
	card pcsc.Card
}

// NewCardReader creates a new CardReader instance over an open card connection
func NewCardReader(card pcsc.Card) *CardReader {
	return &CardReader{card: card}
}

// Close disconnects the card
func (m *CardReader) Close() error {
	return m.card.Disconnect()
}

// send serializes cmd, transmits it and splits off the status word
func (m *CardReader) send(cmd *apdu.Command) (*apdu.Response, error) {
	raw, err := cmd.Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	resp, err := m.card.Transmit(raw)
	if err != nil {
		return nil, err
	}

	r, err := apdu.ParseResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("response too short: %w", err)
	}
	return r, nil
}

// transmit is send plus the 90 00 check
func (m *CardReader) transmit(name string, cmd *apdu.Command) (*apdu.Response, error) {
	r, err := m.send(cmd)
	if err != nil {
		return nil, err
	}
	if r.Sw1 != 0x90 || r.Sw2 != 0x00 {
		log.WithFields(log.Fields{
			"command": name,
			"sw":      fmt.Sprintf("%02X%02X", r.Sw1, r.Sw2),
		}).Debug("command rejected")
		return r, &ErrUnexpectedStatus{Sw1: r.Sw1, Sw2: r.Sw2}
	}
	return r, nil
}

// UID returns the UID of the card. The status word is not checked.
func (m *CardReader) UID() ([]byte, error) {
	r, err := m.send(NewCommandGetUID())
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// ATR returns the parsed Answer To Reset of the card
func (m *CardReader) ATR() (*atr.ATR, error) {
	raw, err := m.card.ATR()
	if err != nil {
		return nil, err
	}
	return atr.Parse(raw)
}

// LoadKey loads a 6 byte MIFARE key into reader key slot 0
func (m *CardReader) LoadKey(key [KeySize]byte) error {
	_, err := m.transmit("load key", NewCommandLoadKey(key))
	return err
}

// Authenticate authenticates block with key A from slot 0 and returns
// whatever payload the reader answered with
func (m *CardReader) Authenticate(block uint8) ([]byte, error) {
	r, err := m.transmit("authenticate", NewCommandAuthenticate(block))
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// WriteBlock writes one 16 byte block
func (m *CardReader) WriteBlock(block uint8, data []byte) error {
	if len(data) != BlockSize {
		return fmt.Errorf("block data must be %d bytes, got %d", BlockSize, len(data))
	}
	_, err := m.transmit("update binary", NewCommandUpdateBinary(block, data))
	return err
}

// WriteSector authenticates sector and writes its 4 blocks in ascending
// order, stopping at the first failure. There is no rollback.
func (m *CardReader) WriteSector(sector uint8, data []byte) error {
	if len(data) != SectorSize {
		return ErrDataLength
	}
	if sector > MaxSector {
		return fmt.Errorf("sector %d out of range 0..%d", sector, MaxSector)
	}

	first := FirstBlock(sector)
	if _, err := m.Authenticate(first); err != nil {
		return &SectorAuthError{Sector: sector, Err: err}
	}

	for i := uint8(0); i < BlocksPerSector; i++ {
		block := first + i
		chunk := data[int(i)*BlockSize : int(i+1)*BlockSize]
		if err := m.WriteBlock(block, chunk); err != nil {
			return &BlockWriteError{Block: block, Err: err}
		}
		log.Debugf("block %d written", block)
	}
	return nil
}

// FirmwareVersion returns the reader firmware string, one character per byte.
// The status word is not checked.
func (m *CardReader) FirmwareVersion() (string, error) {
	r, err := m.send(NewCommandFirmwareVersion())
	if err != nil {
		return "", err
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(r.Data)
	if err != nil {
		return "", fmt.Errorf("failed to decode firmware version: %w", err)
	}
	return string(decoded), nil
}

// SetBuzzer enables or disables the reader beep on card detection
func (m *CardReader) SetBuzzer(on bool) error {
	_, err := m.transmit("set buzzer", NewCommandSetBuzzer(on))
	return err
}
