package compile

import (
	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/spec"
)

const (
	bootName     = "boot"
	symbolTName  = "symbol_t"
	closureTName = "closure_t"
	emptyEnvName = "~empty_env"
	contBehName  = "~cont_beh"

	selfName = "SELF"
)

type step struct {
	op  spec.Op
	imm crlf.Node
}

// chain links steps in order, continuing with k.
func chain(k crlf.Node, steps ...step) crlf.Node {
	for i := len(steps) - 1; i >= 0; i-- {
		k = crlf.NewInstr(steps[i].op, steps[i].imm, k)
	}
	return k
}

func fix(n int) crlf.Fixnum { return crlf.Fixnum(n) }

// common continuations
var (
	commit   = crlf.NewInstr(spec.End, crlf.Commit, nil)
	sendMsg  = chain(commit, step{spec.Send, fix(-1)})
	custSend = chain(sendMsg, step{spec.Msg, fix(1)})
)

var (
	symbolT  = crlf.NewRef(symbolTName)
	closureT = crlf.NewRef(closureTName)
	emptyEnv = crlf.NewRef(emptyEnvName)
	contBeh  = crlf.NewRef(contBehName)
)

// contBehCode resumes a suspended procedure when its callee replies.
var contBehCode = chain(commit,
	step{spec.State, fix(1)},
	step{spec.My, crlf.Self},
	step{spec.Send, fix(-1)},
	step{spec.State, fix(3)},
	step{spec.State, fix(4)},
	step{spec.Msg, fix(0)},
	step{spec.Pair, fix(1)},
	step{spec.Pair, fix(1)},
	step{spec.State, fix(2)},
	step{spec.Beh, fix(-1)},
)

// bootTrailer forwards the boot message to the capability it carries.
var bootTrailer = chain(sendMsg,
	step{spec.Msg, fix(0)},
	step{spec.Push, fix(2)},
	step{spec.Dict, crlf.Get},
)

// putPrelude adds the definitions every module starts with.
func putPrelude(defs *crlf.Defs) {
	defs.Put(symbolTName, crlf.NewType(1))
	defs.Put(closureTName, crlf.NewType(2))
	defs.Put(emptyEnvName, crlf.NewPair(crlf.Nil, crlf.Nil))
	defs.Put(contBehName, contBehCode)
}
