// Package atr parses the Answer To Reset a card returns on connection.
//
// Layout (ISO/IEC 7816-3):
//
//	TS T0 {TAi TBi TCi TDi}... T1..TK [TCK]
//
// The high nibble of T0 and of every TDi flags which interface bytes of the
// next level follow; the low nibble of T0 is the number of historical bytes
// and the low nibble of TDi is a protocol type.
package atr

import (
	"errors"
	"fmt"
)

const (
	TSDirect  = 0x3B
	TSInverse = 0x3F
)

var (
	ErrTooShort  = errors.New("atr too short")
	ErrInvalidTS = errors.New("invalid initial character")
)

// ErrTruncated is returned when T0 or a TDi announces more bytes than the ATR holds
type ErrTruncated struct {
	Field string
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("atr truncated: missing %s", e.Field)
}

// IsMalformed reports whether err was returned by Parse for bad ATR bytes
func IsMalformed(err error) bool {
	var truncated *ErrTruncated
	return errors.Is(err, ErrTooShort) || errors.Is(err, ErrInvalidTS) || errors.As(err, &truncated)
}

// InterfaceBytes holds TAi, TBi, TCi and TDi for one level i
type InterfaceBytes struct {
	TA, TB, TC, TD             byte
	HasTA, HasTB, HasTC, HasTD bool
}

// ATR is a parsed Answer To Reset
type ATR struct {
	Raw        []byte
	TS         byte
	T0         byte
	Interface  []InterfaceBytes
	Historical []byte
	TCK        byte
	HasTCK     bool
}

// Parse decodes raw ATR bytes. Bytes trailing TCK are ignored.
func Parse(raw []byte) (*ATR, error) {
	if len(raw) < 2 {
		return nil, ErrTooShort
	}
	a := &ATR{Raw: append([]byte(nil), raw...), TS: raw[0], T0: raw[1]}
	if a.TS != TSDirect && a.TS != TSInverse {
		return nil, fmt.Errorf("%w: %02X", ErrInvalidTS, a.TS)
	}

	pos := 2
	next := func(field string, level int) (byte, error) {
		if pos >= len(raw) {
			return 0, &ErrTruncated{Field: fmt.Sprintf("%s%d", field, level)}
		}
		b := raw[pos]
		pos++
		return b, nil
	}

	y := a.T0 >> 4
	for level := 1; ; level++ {
		var ib InterfaceBytes
		var err error
		if y&0x1 != 0 {
			if ib.TA, err = next("TA", level); err != nil {
				return nil, err
			}
			ib.HasTA = true
		}
		if y&0x2 != 0 {
			if ib.TB, err = next("TB", level); err != nil {
				return nil, err
			}
			ib.HasTB = true
		}
		if y&0x4 != 0 {
			if ib.TC, err = next("TC", level); err != nil {
				return nil, err
			}
			ib.HasTC = true
		}
		if y&0x8 != 0 {
			if ib.TD, err = next("TD", level); err != nil {
				return nil, err
			}
			ib.HasTD = true
		}
		a.Interface = append(a.Interface, ib)
		if !ib.HasTD {
			break
		}
		y = ib.TD >> 4
	}

	k := int(a.T0 & 0x0F)
	if pos+k > len(raw) {
		return nil, &ErrTruncated{Field: "historical bytes"}
	}
	a.Historical = a.Raw[pos : pos+k]
	pos += k

	if a.requiresTCK() {
		if pos >= len(raw) {
			return nil, &ErrTruncated{Field: "TCK"}
		}
		a.TCK = raw[pos]
		a.HasTCK = true
	}
	return a, nil
}

// requiresTCK reports whether a protocol other than T=0 is indicated
func (a *ATR) requiresTCK() bool {
	for _, p := range a.Protocols() {
		if p != 0 {
			return true
		}
	}
	return false
}

// HistoricalBytes returns T1..TK
func (a *ATR) HistoricalBytes() []byte {
	return a.Historical
}

// Protocols returns the protocol types named by the TDi bytes, in order
func (a *ATR) Protocols() []int {
	var protocols []int
	for _, ib := range a.Interface {
		if ib.HasTD {
			protocols = append(protocols, int(ib.TD&0x0F))
		}
	}
	return protocols
}

func (a *ATR) supports(t int) bool {
	for _, p := range a.Protocols() {
		if p == t {
			return true
		}
	}
	return false
}

// IsT0Supported is true when a TDi names T=0 or when TD1 is absent
func (a *ATR) IsT0Supported() bool {
	if len(a.Interface) == 0 || !a.Interface[0].HasTD {
		return true
	}
	return a.supports(0)
}

func (a *ATR) IsT1Supported() bool {
	return a.supports(1)
}

// IsT15Supported reports global interface bytes, T=15 is not a transmission protocol
func (a *ATR) IsT15Supported() bool {
	return a.supports(15)
}

// Convention returns "direct" or "inverse"
func (a *ATR) Convention() string {
	if a.TS == TSInverse {
		return "inverse"
	}
	return "direct"
}

// ChecksumOK verifies TCK: the XOR of T0 through TCK is zero.
// An ATR without TCK is always valid.
func (a *ATR) ChecksumOK() bool {
	if !a.HasTCK {
		return true
	}
	var x byte
	for i := 1; i <= a.tckIndex(); i++ {
		x ^= a.Raw[i]
	}
	return x == 0
}

func (a *ATR) tckIndex() int {
	n := 2
	for _, ib := range a.Interface {
		for _, has := range []bool{ib.HasTA, ib.HasTB, ib.HasTC, ib.HasTD} {
			if has {
				n++
			}
		}
	}
	return n + len(a.Historical)
}
