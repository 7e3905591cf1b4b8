package command

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jenish-rudani/nfctool/internal/nfc"
)

// Kind is the closed set of subcommands
type Kind int

const (
	Unknown Kind = iota
	Help
	GetUID
	Info
	LoadKey
	Read
	Write
	FirmwareVersion
	Mute
	Unmute
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	Help:            "help",
	GetUID:          "getuid",
	Info:            "info",
	LoadKey:         "loadkey",
	Read:            "read",
	Write:           "write",
	FirmwareVersion: "firmver",
	Mute:            "mute",
	Unmute:          "unmute",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if k != Unknown {
			m[name] = k
		}
	}
	return m
}()

var kindArgs = map[Kind]string{
	LoadKey: "<key>",
	Read:    "<sector>",
	Write:   "<sector> <data>",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// NeedsCard reports whether the command talks to the reader
func (k Kind) NeedsCard() bool {
	return k != Help && k != Unknown
}

// Command is one parsed and validated invocation
type Command struct {
	Kind Kind
	// Name is the subcommand as typed, kept for Unknown
	Name   string
	Key    [nfc.KeySize]byte
	Sector uint8
	Data   []byte
}

// UsageError is returned when a subcommand is missing arguments
type UsageError struct {
	Kind Kind
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("Usage: %s %s %s", ToolName, e.Kind, kindArgs[e.Kind])
}

// ArgumentError is returned when an argument is present but invalid
type ArgumentError struct {
	Arg string
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Arg, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Parse maps positional arguments to a Command. A missing subcommand is Help.
func Parse(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{Kind: Help, Name: kindNames[Help]}, nil
	}

	name := args[0]
	kind, ok := kindsByName[name]
	if !ok {
		return Command{Kind: Unknown, Name: name}, nil
	}
	cmd := Command{Kind: kind, Name: name}
	args = args[1:]

	switch kind {
	case LoadKey:
		if len(args) < 1 {
			return cmd, &UsageError{Kind: kind}
		}
		key, err := parseHex(args[0])
		if err != nil {
			return cmd, &ArgumentError{Arg: "key", Err: err}
		}
		if len(key) != nfc.KeySize {
			return cmd, &ArgumentError{Arg: "key", Err: fmt.Errorf("must be %d bytes (%d hex characters), got %d", nfc.KeySize, nfc.KeySize*2, len(key))}
		}
		copy(cmd.Key[:], key)

	case Read:
		if len(args) < 1 {
			return cmd, &UsageError{Kind: kind}
		}
		sector, err := parseSector(args[0])
		if err != nil {
			return cmd, err
		}
		cmd.Sector = sector

	case Write:
		if len(args) < 2 {
			return cmd, &UsageError{Kind: kind}
		}
		sector, err := parseSector(args[0])
		if err != nil {
			return cmd, err
		}
		data, err := parseHex(args[1])
		if err != nil {
			return cmd, &ArgumentError{Arg: "data", Err: err}
		}
		if len(data) != nfc.SectorSize {
			return cmd, &ArgumentError{Arg: "data", Err: nfc.ErrDataLength}
		}
		cmd.Sector = sector
		cmd.Data = data
	}

	return cmd, nil
}

func parseSector(s string) (uint8, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ArgumentError{Arg: "sector", Err: fmt.Errorf("%q is not an integer", s)}
	}
	if n < 0 || n > nfc.MaxSector {
		return 0, &ArgumentError{Arg: "sector", Err: fmt.Errorf("%d out of range 0..%d", n, nfc.MaxSector)}
	}
	return uint8(n), nil
}

// parseHex accepts hex with optional ':' or ' ' separators
func parseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		var invalid hex.InvalidByteError
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("%q is not hex", s)
		}
		return nil, fmt.Errorf("%q has an odd number of hex characters", s)
	}
	return b, nil
}
