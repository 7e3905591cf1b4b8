package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/jenish-rudani/nfctool/internal/atr"
	"github.com/jenish-rudani/nfctool/internal/nfc"
	"github.com/jenish-rudani/nfctool/internal/pcsc"
	"github.com/jenish-rudani/nfctool/internal/utils/log"
	"github.com/kr/pretty"
)

const ToolName = "nfctool"

const helpText = `Usage: ` + ToolName + ` <command>
List of available commands:
    help                    Show this help page
    mute                    Disable beep sound when card is tagged
    unmute                  Enable beep sound when card is tagged
    getuid                  Print UID of the tagged card
    info                    Print card type and available protocols
    loadkey <key>           Load key <key> (6-byte hex string) for authentication
    read <sector>           Read sector <sector> with loaded key
    write <sector> <data>   Write data (64-byte hex string) to sector <sector>
    firmver                 Print the firmware version of the reader
`

// ContextOpener establishes the PC/SC context, called only for commands that need a card
type ContextOpener func() (pcsc.Context, error)

// Dispatcher runs one command per invocation and renders its result to out.
// Status failures are printed, only transport faults are returned.
type Dispatcher struct {
	open ContextOpener
	out  io.Writer
}

func NewDispatcher(open ContextOpener, out io.Writer) *Dispatcher {
	return &Dispatcher{open: open, out: out}
}

func (d *Dispatcher) println(a ...interface{}) {
	fmt.Fprintln(d.out, a...)
}

func (d *Dispatcher) printf(format string, a ...interface{}) {
	fmt.Fprintf(d.out, format, a...)
}

// Run parses args and executes the resulting command
func (d *Dispatcher) Run(args []string) error {
	cmd, err := Parse(args)
	if err != nil {
		d.reportParseError(err)
		return nil
	}
	return d.Execute(cmd)
}

func (d *Dispatcher) reportParseError(err error) {
	var usage *UsageError
	var arg *ArgumentError
	switch {
	case errors.As(err, &usage):
		d.println(usage.Error())
	case errors.Is(err, nfc.ErrDataLength):
		d.println("Error: Data length must be 16 bytes per block")
	case errors.As(err, &arg):
		d.println("Error:", arg.Error())
	default:
		d.println("Error:", err)
	}
}

// Execute runs an already parsed command. The PC/SC context and the card are
// released before it returns.
func (d *Dispatcher) Execute(cmd Command) error {
	switch cmd.Kind {
	case Help:
		d.printf("%s", helpText)
		return nil
	case Unknown:
		log.With("command", cmd.Name).Debug("unknown command")
		d.println("Error: Unknown command. Use 'help' for command list.")
		return nil
	}

	ctx, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := ctx.Release(); rerr != nil {
			log.Errorf("error releasing context: %v", rerr)
		}
	}()

	card, err := pcsc.OpenFirst(ctx)
	if errors.Is(err, pcsc.ErrNoReaders) {
		d.println("Error: No readers available!")
		return nil
	}
	if err != nil {
		return err
	}
	reader := nfc.NewCardReader(card)
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			log.Errorf("error disconnecting card: %v", cerr)
		}
	}()

	if err := d.dispatch(reader, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind, err)
	}
	return nil
}

func (d *Dispatcher) dispatch(reader *nfc.CardReader, cmd Command) error {
	switch cmd.Kind {
	case GetUID:
		uid, err := reader.UID()
		if err != nil {
			return err
		}
		d.println("UID:", hexString(uid))

	case Info:
		a, err := reader.ATR()
		if atr.IsMalformed(err) {
			d.println("Error: failed to parse ATR:", err)
			return nil
		}
		if err != nil {
			return err
		}
		if log.IsDebugEnabled() {
			log.Debugf("atr %# v", pretty.Formatter(a))
		}
		d.println("Card Info:")
		d.println("    Historical Bytes:", hexString(a.HistoricalBytes()))
		d.println("    T0 Supported:", a.IsT0Supported())
		d.println("    T1 Supported:", a.IsT1Supported())
		d.println("    T15 Supported:", a.IsT15Supported())

	case LoadKey:
		err := reader.LoadKey(cmd.Key)
		switch {
		case err == nil:
			d.println("Status: Key loaded successfully to key #0.")
		case nfc.IsStatusError(err):
			d.println("Status: Failed to load key.")
		default:
			return err
		}

	case Read:
		data, err := reader.Authenticate(nfc.FirstBlock(cmd.Sector))
		switch {
		case err == nil:
			d.println("Sector", cmd.Sector, "Data:", hexString(data))
		case nfc.IsStatusError(err):
			d.println("Failed to read sector", cmd.Sector)
		default:
			return err
		}

	case Write:
		err := reader.WriteSector(cmd.Sector, cmd.Data)
		if err != nil && !nfc.IsStatusError(err) {
			return err
		}
		var authErr *nfc.SectorAuthError
		var writeErr *nfc.BlockWriteError
		switch {
		case err == nil:
			d.println("Data written successfully to sector", cmd.Sector)
		case errors.As(err, &authErr):
			d.println("Error: Authentication failed for sector", authErr.Sector)
		case errors.As(err, &writeErr):
			d.println("Error: Writing failed for block", writeErr.Block)
		}

	case FirmwareVersion:
		version, err := reader.FirmwareVersion()
		if err != nil {
			return err
		}
		d.println("Firmware Version:", version)

	case Mute, Unmute:
		on := cmd.Kind == Unmute
		err := reader.SetBuzzer(on)
		switch {
		case err == nil && on:
			d.println("Status: Buzzer enabled.")
		case err == nil:
			d.println("Status: Buzzer disabled.")
		case !nfc.IsStatusError(err):
			return err
		case on:
			d.println("Status: Failed to enable buzzer.")
		default:
			d.println("Status: Failed to disable buzzer.")
		}
	}
	return nil
}

// hexString renders bytes as uppercase space separated hex, "04 A1 FF"
func hexString(b []byte) string {
	return fmt.Sprintf("% X", b)
}
