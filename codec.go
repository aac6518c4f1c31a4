package mailbox

import (
	"bytes"
	"fmt"
	"strings"
)

// TextCodec lays a record out as NUL-terminated text, byte for byte what the
// historical C sender wrote. The terminator is the text SentinelText, so a
// data line equal to it (without a line terminator) also ends the stream.
type TextCodec struct{}

func (TextCodec) Name() string { return "text" }

func (TextCodec) Encode(dst []byte, rec Record) (int, error) {
	text := rec.Text
	if rec.IsTerminate() {
		text = []byte(SentinelText)
	}
	if len(text) > MaxRecordText || len(text)+1 > len(dst) {
		return 0, fmt.Errorf("%w: %d bytes", ErrRecordTooLong, len(text))
	}
	n := copy(dst, text)
	dst[n] = 0
	return n + 1, nil
}

func (TextCodec) Decode(src []byte) (Record, error) {
	end := bytes.IndexByte(src, 0)
	if end < 0 {
		return Record{}, fmt.Errorf("%w: no terminator in %d bytes", ErrUnexpectedRecord, len(src))
	}
	if string(src[:end]) == SentinelText {
		return TerminateRecord(), nil
	}
	text := make([]byte, end)
	copy(text, src[:end])
	return DataRecord(text), nil
}

// ParseCodec maps a codec name from configuration to its implementation.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return TextCodec{}, nil
	case "envelope", "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q (want text or envelope)", name)
	}
}
