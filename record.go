package mailbox

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	// RecordCapacity is the size of a record buffer, terminator included.
	RecordCapacity = 100

	// MaxRecordText is the longest text a record carries.
	MaxRecordText = RecordCapacity - 1

	// SlotSize is the number of bytes one record occupies in a transport:
	// the queue's message size and the shared region's length. It is
	// sizeof(message_t) on 64-bit Linux, a long plus 100 bytes padded to
	// the long's alignment, so C peers see the queue and region they expect.
	SlotSize = 112

	// SentinelText is the text the text codec uses to mark end of stream.
	SentinelText = "exit"
)

// Kind tells data records from the end-of-stream record.
type Kind uint8

const (
	KindData Kind = iota + 1
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Record is one framed unit: a line of input, or the terminator.
type Record struct {
	Kind Kind
	Text []byte
}

// DataRecord wraps one line of text.
func DataRecord(text []byte) Record {
	return Record{Kind: KindData, Text: text}
}

// TerminateRecord returns the end-of-stream record.
func TerminateRecord() Record {
	return Record{Kind: KindTerminate}
}

// IsTerminate reports whether r ends the stream.
func (r Record) IsTerminate() bool {
	return r.Kind == KindTerminate
}

// Line returns the text without its trailing line terminator.
func (r Record) Line() string {
	return strings.TrimRight(string(r.Text), "\r\n")
}

// LinePolicy decides what happens to a line longer than MaxRecordText.
type LinePolicy int

const (
	// PolicySplit carries the rest of an overlong line in the following
	// records, the way fgets does with a fixed buffer.
	PolicySplit LinePolicy = iota
	// PolicyTruncate keeps the first MaxRecordText bytes and drops the rest
	// of the line, terminator included.
	PolicyTruncate
	// PolicyReject fails with ErrRecordTooLong.
	PolicyReject
)

var linePolicyNames = map[LinePolicy]string{
	PolicySplit:    "split",
	PolicyTruncate: "truncate",
	PolicyReject:   "reject",
}

func (p LinePolicy) String() string {
	if s, ok := linePolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseLinePolicy maps "split", "truncate" or "reject" to a LinePolicy.
func ParseLinePolicy(s string) (LinePolicy, error) {
	for p, name := range linePolicyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown line policy %q (want split, truncate or reject)", s)
}

// LineReader frames an input stream into data records.
type LineReader struct {
	r      *bufio.Reader
	policy LinePolicy
	line   int
}

// NewLineReader reads lines from r, applying policy to overlong lines.
func NewLineReader(r io.Reader, policy LinePolicy) *LineReader {
	return &LineReader{r: bufio.NewReader(r), policy: policy}
}

// Next returns the next data record, or io.EOF once the input is exhausted.
// A record keeps the line's terminator when it fits.
func (lr *LineReader) Next() (Record, error) {
	buf := make([]byte, 0, MaxRecordText)
	complete := false
	for len(buf) < MaxRecordText {
		c, err := lr.r.ReadByte()
		if err == io.EOF {
			if len(buf) == 0 {
				return Record{}, io.EOF
			}
			complete = true
			break
		}
		if err != nil {
			return Record{}, err
		}
		buf = append(buf, c)
		if c == '\n' {
			complete = true
			break
		}
	}

	if !complete {
		more, err := lr.hasMore()
		if err != nil {
			return Record{}, err
		}
		switch {
		case !more:
			complete = true
		case lr.policy == PolicyReject:
			return Record{}, fmt.Errorf("%w: line %d is longer than %d bytes", ErrRecordTooLong, lr.line+1, MaxRecordText)
		case lr.policy == PolicyTruncate:
			if err := lr.skipLine(); err != nil {
				return Record{}, err
			}
			complete = true
		}
	}

	// a split line counts once, on its last chunk
	if complete {
		lr.line++
	}
	return DataRecord(buf), nil
}

// Lines returns the number of complete input lines framed so far.
func (lr *LineReader) Lines() int {
	return lr.line
}

// hasMore reports whether the current line continues past the buffer.
func (lr *LineReader) hasMore() (bool, error) {
	b, err := lr.r.Peek(1)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// a bare terminator after a full buffer still overflows the terminator slot
	return len(b) == 1, nil
}

func (lr *LineReader) skipLine() error {
	_, err := lr.r.ReadSlice('\n')
	for err == bufio.ErrBufferFull {
		_, err = lr.r.ReadSlice('\n')
	}
	if err == io.EOF {
		return nil
	}
	return err
}
