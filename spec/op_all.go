package spec

// All returns every known instruction, in encoding order.
func All() (ret []Op) {
	for i := 1; i <= int(Debug); i++ {
		ret = append(ret, Op(i))
	}
	return ret
}

// AllActor contains the instructions which touch the actor runtime
func AllActor() []Op {
	return []Op{Msg, State, My, Send, Signal, New, Beh, End, Sponsor}
}
