package mailbox

import (
	"fmt"
	"regexp"
	"strings"
)

// Historical resource names. Both executables fall back to these when no
// session is configured, which keeps them interoperable with peers built
// against the same fixed names.
const (
	DefaultQueueName    = "/test_queue"
	DefaultRegionName   = "/shm_comm"
	DefaultSenderName   = "/sender_sem"
	DefaultReceiverName = "/receiver_sem"
)

// maxNameLen leaves room for the "sem." prefix within NAME_MAX.
const maxNameLen = 250

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Names is the set of named resources one producer/consumer pair rendezvous on.
type Names struct {
	Queue    string
	Region   string
	Sender   string
	Receiver string
}

// DefaultNames returns the unscoped historical names.
func DefaultNames() Names {
	return Names{
		Queue:    DefaultQueueName,
		Region:   DefaultRegionName,
		Sender:   DefaultSenderName,
		Receiver: DefaultReceiverName,
	}
}

// SessionNames scopes every resource name by session so unrelated runs do not
// collide. An empty session yields DefaultNames.
func SessionNames(session string) (Names, error) {
	if session == "" {
		return DefaultNames(), nil
	}
	if !sessionPattern.MatchString(session) {
		return Names{}, fmt.Errorf("%w: session %q", ErrInvalidName, session)
	}
	prefix := "/mailbox." + session + "."
	return Names{
		Queue:    prefix + "queue",
		Region:   prefix + "region",
		Sender:   prefix + "sender",
		Receiver: prefix + "receiver",
	}, nil
}

// bareName validates a POSIX IPC name ("/name") and returns it without the
// leading slash.
func bareName(name string) (string, error) {
	if !strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q must start with '/'", ErrInvalidName, name)
	}
	bare := name[1:]
	if bare == "" || len(bare) > maxNameLen || strings.ContainsRune(bare, '/') || bare == "." || bare == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return bare, nil
}
