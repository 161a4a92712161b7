package client

import (
	"os"

	"github.com/google/uuid"
)

const CmdSetActivity = "SET_ACTIVITY"

type ActivityArgs struct {
	Pid      int       `json:"pid"`
	Activity *Activity `json:"activity,omitempty"`
}

// Envelope is the command document carried inside a FRAME opcode.
type Envelope struct {
	Cmd   string       `json:"cmd"`
	Args  ActivityArgs `json:"args"`
	Nonce string       `json:"nonce"`
}

// NewSetActivity wraps act for the current process. A nil act produces the
// clear envelope, which omits the activity entirely.
func NewSetActivity(act *Activity) Envelope {
	return Envelope{
		Cmd: CmdSetActivity,
		Args: ActivityArgs{
			Pid:      os.Getpid(),
			Activity: act,
		},
		Nonce: uuid.NewString(),
	}
}

func NewClearActivity() Envelope {
	return NewSetActivity(nil)
}

func (e Envelope) IsClear() bool {
	return e.Args.Activity == nil
}
