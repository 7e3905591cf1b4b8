package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jenish-rudani/nfctool/internal/pcsc"
	"github.com/stretchr/testify/require"
)

var (
	swOK     = []byte{0x90, 0x00}
	swFailed = []byte{0x63, 0x00}

	mifare1kATR = []byte{0x3B, 0x8F, 0x80, 0x01, 0x80, 0x4F, 0x0C, 0xA0, 0x00, 0x00, 0x03, 0x06, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x6A}
)

type harness struct {
	ctx    *pcsc.FakeContext
	card   *pcsc.FakeCard
	out    bytes.Buffer
	opened int
}

func newHarness(responses ...[]byte) *harness {
	card := &pcsc.FakeCard{Atr: mifare1kATR, Responses: responses}
	return &harness{
		card: card,
		ctx:  &pcsc.FakeContext{Readers: []string{"ACS ACR122U PICC Interface 00 00"}, Card: card},
	}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	d := NewDispatcher(func() (pcsc.Context, error) {
		h.opened++
		return h.ctx, nil
	}, &h.out)
	return d.Run(args)
}

func (h *harness) output() string {
	return h.out.String()
}

func TestHelpAndUnknownSkipReader(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"erase"}, {"loadkey"}, {"write", "1", "00"}} {
		h := newHarness()
		require.NoError(t, h.run(t, args...))
		require.Zero(t, h.opened, "%v", args)
		require.Empty(t, h.card.Sent)
	}

	h := newHarness()
	require.NoError(t, h.run(t, "help"))
	require.True(t, strings.HasPrefix(h.output(), "Usage: nfctool <command>\n"))
	require.Contains(t, h.output(), "firmver")

	h = newHarness()
	require.NoError(t, h.run(t, "erase"))
	require.Equal(t, "Error: Unknown command. Use 'help' for command list.\n", h.output())
}

func TestGetUID(t *testing.T) {
	h := newHarness([]byte{0x04, 0xA1, 0xFF, 0x90, 0x00})
	require.NoError(t, h.run(t, "getuid"))
	require.Equal(t, "UID: 04 A1 FF\n", h.output())
	require.Equal(t, [][]byte{{0xFF, 0xCA, 0x00, 0x00, 0x00}}, h.card.Sent)
	require.True(t, h.card.Disconnected)
	require.True(t, h.ctx.Released)
}

func TestInfo(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "info"))
	require.Equal(t, "Card Info:\n"+
		"    Historical Bytes: 80 4F 0C A0 00 00 03 06 03 00 01 00 00 00 00\n"+
		"    T0 Supported: true\n"+
		"    T1 Supported: true\n"+
		"    T15 Supported: false\n", h.output())
	require.Empty(t, h.card.Sent)

	h = newHarness()
	h.card.Atr = []byte{0x3B}
	require.NoError(t, h.run(t, "info"))
	require.Equal(t, "Error: failed to parse ATR: atr too short\n", h.output())
}

func TestLoadKey(t *testing.T) {
	h := newHarness(swOK)
	require.NoError(t, h.run(t, "loadkey", "FFFFFFFFFFFF"))
	require.Equal(t, [][]byte{{0xFF, 0x82, 0x00, 0x00, 0x06, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}}, h.card.Sent)
	require.Equal(t, "Status: Key loaded successfully to key #0.\n", h.output())

	h = newHarness(swFailed)
	require.NoError(t, h.run(t, "loadkey", "FFFFFFFFFFFF"))
	require.Len(t, h.card.Sent, 1)
	require.Equal(t, "Status: Failed to load key.\n", h.output())
}

func TestRead(t *testing.T) {
	h := newHarness([]byte{0xDE, 0xAD, 0x90, 0x00})
	require.NoError(t, h.run(t, "read", "3"))
	require.Equal(t, [][]byte{{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, 0x0C, 0x60, 0x00}}, h.card.Sent)
	require.Equal(t, "Sector 3 Data: DE AD\n", h.output())

	h = newHarness(swFailed)
	require.NoError(t, h.run(t, "read", "3"))
	require.Equal(t, "Failed to read sector 3\n", h.output())
}

func TestWrite(t *testing.T) {
	data := strings.Repeat("00112233445566778899AABBCCDDEEFF", 4)

	t.Run("success", func(t *testing.T) {
		h := newHarness(swOK, swOK, swOK, swOK, swOK)
		require.NoError(t, h.run(t, "write", "2", data))
		require.Len(t, h.card.Sent, 5)
		require.Equal(t, []byte{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, 0x08, 0x60, 0x00}, h.card.Sent[0])
		for i, sent := range h.card.Sent[1:] {
			require.Len(t, sent, 21)
			require.Equal(t, []byte{0xFF, 0xD6, 0x00, byte(8 + i), 0x10}, sent[:5])
		}
		require.Equal(t, "Data written successfully to sector 2\n", h.output())
	})

	t.Run("authentication failure", func(t *testing.T) {
		h := newHarness(swFailed)
		require.NoError(t, h.run(t, "write", "2", data))
		require.Len(t, h.card.Sent, 1)
		require.Equal(t, "Error: Authentication failed for sector 2\n", h.output())
	})

	t.Run("block 11 fails", func(t *testing.T) {
		h := newHarness(swOK, swOK, swOK, swOK, swFailed)
		h.card.Default = swOK
		require.NoError(t, h.run(t, "write", "2", data))
		require.Len(t, h.card.Sent, 5)
		require.Equal(t, byte(11), h.card.Sent[4][3])
		require.Equal(t, "Error: Writing failed for block 11\n", h.output())
	})

	t.Run("block 9 fails stops early", func(t *testing.T) {
		h := newHarness(swOK, swOK, swFailed)
		h.card.Default = swOK
		require.NoError(t, h.run(t, "write", "2", data))
		require.Len(t, h.card.Sent, 3)
		require.Equal(t, "Error: Writing failed for block 9\n", h.output())
	})

	t.Run("wrong length", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.run(t, "write", "2", data+"00"))
		require.Empty(t, h.card.Sent)
		require.Equal(t, "Error: Data length must be 16 bytes per block\n", h.output())
	})
}

func TestFirmwareVersion(t *testing.T) {
	h := newHarness([]byte{0x31, 0x2E, 0x30, 0x90, 0x00})
	require.NoError(t, h.run(t, "firmver"))
	require.Equal(t, [][]byte{{0xFF, 0x00, 0x48, 0x00, 0x00}}, h.card.Sent)
	require.Equal(t, "Firmware Version: 1.0\n", h.output())
}

func TestBuzzer(t *testing.T) {
	var tt = []struct {
		name     string
		args     string
		resp     []byte
		sent     []byte
		expected string
	}{
		{"mute", "mute", swOK, []byte{0xFF, 0x00, 0x52, 0x00, 0x00}, "Status: Buzzer disabled.\n"},
		{"mute failed", "mute", swFailed, []byte{0xFF, 0x00, 0x52, 0x00, 0x00}, "Status: Failed to disable buzzer.\n"},
		{"unmute", "unmute", swOK, []byte{0xFF, 0x00, 0x52, 0xFF, 0x00}, "Status: Buzzer enabled.\n"},
		{"unmute failed", "unmute", swFailed, []byte{0xFF, 0x00, 0x52, 0xFF, 0x00}, "Status: Failed to enable buzzer.\n"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(tc.resp)
			require.NoError(t, h.run(t, tc.args))
			require.Equal(t, [][]byte{tc.sent}, h.card.Sent)
			require.Equal(t, tc.expected, h.output())
		})
	}
}

func TestNoReaders(t *testing.T) {
	h := newHarness()
	h.ctx.Readers = nil
	require.NoError(t, h.run(t, "getuid"))
	require.Equal(t, "Error: No readers available!\n", h.output())
	require.True(t, h.ctx.Released)
}

func TestTransportFaultPropagates(t *testing.T) {
	h := newHarness()
	h.card.TransmitErr = errors.New("transmission failed: card removed")
	err := h.run(t, "loadkey", "FFFFFFFFFFFF")
	require.EqualError(t, err, "loadkey: transmission failed: card removed")
	require.Empty(t, h.output())
	require.True(t, h.card.Disconnected)
	require.True(t, h.ctx.Released)
}

func TestContextFailure(t *testing.T) {
	var out bytes.Buffer
	d := NewDispatcher(func() (pcsc.Context, error) {
		return nil, errors.New("failed to establish context: service not available")
	}, &out)
	require.EqualError(t, d.Run([]string{"getuid"}), "failed to establish context: service not available")
}
