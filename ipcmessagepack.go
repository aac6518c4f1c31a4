package mailbox

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the msgpack layout of a record: a two-element array
// [kind, text]. It fits a slot with room to spare for MaxRecordText bytes.
type envelope struct {
	_msgpack struct{} `msgpack:",as_array"`

	Kind Kind
	Text []byte
}

// MsgpackCodec frames records in an explicit [kind, text] envelope, so any
// text, including SentinelText, travels as data.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "envelope" }

func (MsgpackCodec) Encode(dst []byte, rec Record) (int, error) {
	if len(rec.Text) > MaxRecordText {
		return 0, fmt.Errorf("%w: %d bytes", ErrRecordTooLong, len(rec.Text))
	}
	env := envelope{Kind: rec.Kind}
	if !rec.IsTerminate() {
		env.Text = rec.Text
	}
	b, err := msgpack.Marshal(&env)
	if err != nil {
		return 0, err
	}
	if len(b) > len(dst) {
		return 0, fmt.Errorf("%w: envelope is %d bytes", ErrRecordTooLong, len(b))
	}
	return copy(dst, b), nil
}

func (MsgpackCodec) Decode(src []byte) (Record, error) {
	// the decoder stops after one value, so slot padding is ignored
	var env envelope
	if err := msgpack.NewDecoder(bytes.NewReader(src)).Decode(&env); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnexpectedRecord, err)
	}
	switch env.Kind {
	case KindData:
		if env.Text == nil {
			env.Text = []byte{}
		}
		return DataRecord(env.Text), nil
	case KindTerminate:
		return TerminateRecord(), nil
	default:
		return Record{}, fmt.Errorf("%w: %s", ErrUnexpectedRecord, env.Kind)
	}
}
