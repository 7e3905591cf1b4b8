package pcsc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenFirst(t *testing.T) {
	var tt = []struct {
		name        string
		ctx         *FakeContext
		expectedErr error
		reader      string
	}{
		{
			name:        "no readers",
			ctx:         &FakeContext{Card: &FakeCard{}},
			expectedErr: ErrNoReaders,
		},
		{
			name:        "list error",
			ctx:         &FakeContext{ListErr: errors.New("service stopped")},
			expectedErr: errors.New("service stopped"),
		},
		{
			name:   "first reader wins",
			ctx:    &FakeContext{Readers: []string{"ACS ACR122U 00 00", "ACS ACR122U 01 00"}, Card: &FakeCard{}},
			reader: "ACS ACR122U 00 00",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			card, err := OpenFirst(tc.ctx)
			if tc.expectedErr != nil {
				require.EqualError(t, err, tc.expectedErr.Error())
				require.Nil(t, card)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.reader, card.(*FakeCard).Reader)
		})
	}
}

func TestFakeCardRecordsTransmits(t *testing.T) {
	card := &FakeCard{Responses: [][]byte{{0x90, 0x00}}, Default: []byte{0x63, 0x00}}

	resp, err := card.Transmit([]byte{0xFF, 0xCA, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, []byte{0x90, 0x00}, resp)

	resp, err = card.Transmit([]byte{0xFF, 0x00, 0x48, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, []byte{0x63, 0x00}, resp)

	require.Len(t, card.Sent, 2)
	require.Equal(t, []byte{0xFF, 0x00, 0x48, 0x00, 0x00}, card.Sent[1])
}
