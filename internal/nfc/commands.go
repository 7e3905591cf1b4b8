package nfc

import (
	"github.com/status-im/keycard-go/apdu"
)

// Pseudo-APDUs understood by PC/SC contactless readers (PC/SC part 3) and
// the ACR122U escape commands.
const (
	ClaReader = 0xFF

	InsGetData           = 0xCA
	InsLoadKey           = 0x82
	InsGeneralAuth       = 0x86
	InsUpdateBinary      = 0xD6
	InsReaderEscape      = 0x00
	P1GetDataUID         = 0x00
	P1EscapeFirmware     = 0x48
	P1EscapeBuzzer       = 0x52
	P2BuzzerOff          = 0x00
	P2BuzzerOn           = 0xFF
	KeyStructureVolatile = 0x00
	KeySlot0             = 0x00
	AuthVersion          = 0x01
	KeyTypeA             = 0x60
)

const (
	KeySize         = 6
	BlockSize       = 16
	BlocksPerSector = 4
	SectorSize      = BlockSize * BlocksPerSector
	MaxSector       = 63
)

// FirstBlock returns the address of the first block of a MIFARE Classic sector
func FirstBlock(sector uint8) uint8 {
	return sector * BlocksPerSector
}

// NewCommandGetUID builds FF CA 00 00 00
func NewCommandGetUID() *apdu.Command {
	cmd := apdu.NewCommand(ClaReader, InsGetData, P1GetDataUID, 0x00, nil)
	cmd.SetLe(0)
	return cmd
}

// NewCommandLoadKey builds FF 82 00 00 06 <key>, storing key in volatile slot 0
func NewCommandLoadKey(key [KeySize]byte) *apdu.Command {
	return apdu.NewCommand(ClaReader, InsLoadKey, KeyStructureVolatile, KeySlot0, key[:])
}

// NewCommandAuthenticate builds FF 86 00 00 05 01 00 <block> 60 00, a key A
// authentication of block with the key in slot 0
func NewCommandAuthenticate(block uint8) *apdu.Command {
	return apdu.NewCommand(
		ClaReader,
		InsGeneralAuth,
		0x00,
		0x00,
		[]byte{AuthVersion, 0x00, block, KeyTypeA, KeySlot0},
	)
}

// NewCommandUpdateBinary builds FF D6 00 <block> 10 <16 bytes>
func NewCommandUpdateBinary(block uint8, data []byte) *apdu.Command {
	return apdu.NewCommand(ClaReader, InsUpdateBinary, 0x00, block, data)
}

// NewCommandFirmwareVersion builds FF 00 48 00 00
func NewCommandFirmwareVersion() *apdu.Command {
	cmd := apdu.NewCommand(ClaReader, InsReaderEscape, P1EscapeFirmware, 0x00, nil)
	cmd.SetLe(0)
	return cmd
}

// NewCommandSetBuzzer builds FF 00 52 FF 00 (on) or FF 00 52 00 00 (off),
// which controls the beep on card detection
func NewCommandSetBuzzer(on bool) *apdu.Command {
	p2 := uint8(P2BuzzerOff)
	if on {
		p2 = P2BuzzerOn
	}
	cmd := apdu.NewCommand(ClaReader, InsReaderEscape, P1EscapeBuzzer, p2, nil)
	cmd.SetLe(0)
	return cmd
}
