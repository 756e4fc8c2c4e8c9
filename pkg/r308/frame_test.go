package r308

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeKnownFrames(t *testing.T) {
	testCases := []struct {
		name   string
		cmd    Command
		args   []uint32
		expect []byte
	}{
		{"verify password", CmdVerifyPassword, []uint32{0},
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x07, 0x13, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1B}},
		{"capture image", CmdCaptureImage, nil,
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x03, 0x01, 0x00, 0x05}},
		{"extract to buffer 1", CmdExtract, []uint32{1},
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x04, 0x02, 0x01, 0x00, 0x08}},
		{"extract to buffer 2", CmdExtract, []uint32{2},
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x04, 0x02, 0x02, 0x00, 0x09}},
		{"merge", CmdMerge, nil,
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x03, 0x05, 0x00, 0x09}},
		{"save", CmdSave, []uint32{1, 10},
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x06, 0x06, 0x01, 0x00, 0x0A, 0x00, 0x18}},
		{"search whole library", CmdSearch, []uint32{1, 0, 0x01F4},
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x08, 0x04, 0x01, 0x00, 0x00, 0x01, 0xF4, 0x01, 0x03}},
		{"delete", CmdDelete, []uint32{10, 1},
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x07, 0x0C, 0x00, 0x0A, 0x00, 0x01, 0x00, 0x1F}},
		{"clear", CmdClear, nil,
			[]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x03, 0x0D, 0x00, 0x11}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.cmd.Encode(tc.args...)
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	require.Equal(t, Encode(OpSearch, []byte{1, 0, 10, 0, 10}), Encode(OpSearch, []byte{1, 0, 10, 0, 10}))
}

func TestFrameRoundTrip(t *testing.T) {
	frames := []*Frame{
		{Address: BroadcastAddress, PID: PIDCommand, Code: byte(OpCaptureImage)},
		{Address: BroadcastAddress, PID: PIDCommand, Code: byte(OpSearch), Payload: []byte{1, 0, 20, 1, 224}},
		{Address: BroadcastAddress, PID: PIDAck, Code: byte(StatusOK), Payload: []byte{0, 12, 0, 99}},
		{Address: BroadcastAddress, PID: PIDAck, Code: byte(StatusNotFound)},
		{Address: BroadcastAddress, PID: PIDData, Code: 0xAA, Payload: bytes.Repeat([]byte{0x5A}, MaxPayload)},
	}
	for _, f := range frames {
		decoded, err := Decode(f.Bytes())
		require.NoError(t, err)
		require.Equal(t, f, decoded)
	}
}

func TestDecodeDetectsEveryMutation(t *testing.T) {
	ack := (&Frame{Address: BroadcastAddress, PID: PIDAck, Code: byte(StatusOK), Payload: []byte{0, 10, 0, 80}}).Bytes()
	for i := range ack {
		for _, mask := range []byte{0x01, 0x80} {
			b := append([]byte(nil), ack...)
			b[i] ^= mask
			_, err := Decode(b)
			var fe *FormatError
			require.Truef(t, errors.As(err, &fe), "byte %d mask %02X not detected", i, mask)
		}
	}
}

func TestDecodeShortFrames(t *testing.T) {
	full := Encode(OpSave, []byte{1, 0, 10})
	for n := 0; n < len(full); n++ {
		_, err := Decode(full[:n])
		var fe *FormatError
		require.Truef(t, errors.As(err, &fe), "%d bytes", n)
		require.True(t, IsLinkError(err))
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	_, err := Decode(append(Encode(OpClear, nil), 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "trailing")
}

func TestFrameWriteTo(t *testing.T) {
	var buf bytes.Buffer
	f := &Frame{Address: BroadcastAddress, PID: PIDCommand, Code: byte(OpMerge)}
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, f.Len(), n)
	require.Equal(t, Encode(OpMerge, nil), buf.Bytes())
}
