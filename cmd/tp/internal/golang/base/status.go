package base

import (
	"strconv"
	"sync"
)

// Status is the exit status of the program.
type Status uint8

// Exit statuses of the tp command.
const (
	SNoError           Status = iota // 0
	SGenericError                    // 1
	SInvalidParameters               // 2
	SHelpRequested                   // 3
	SApplicationError                // 4
	STransportError                  // 5
)

var statusNames = [...]string{
	SNoError:           "NoError",
	SGenericError:      "GenericError",
	SInvalidParameters: "InvalidParameters",
	SHelpRequested:     "HelpRequested",
	SApplicationError:  "ApplicationError",
	STransportError:    "TransportError",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

var exitStatus = struct {
	mu sync.Mutex
	s  Status
}{}

// SetExitStatus sets the exit status, the highest status wins.
func SetExitStatus(n Status) {
	exitStatus.mu.Lock()
	defer exitStatus.mu.Unlock()
	if exitStatus.s < n {
		exitStatus.s = n
	}
}

func ExitStatus() Status {
	exitStatus.mu.Lock()
	defer exitStatus.mu.Unlock()
	return exitStatus.s
}
