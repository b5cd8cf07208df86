package spec

// Info is information about instructions
type Info struct {
	// Terminal instructions end a chain, they have no continuation.
	Terminal bool `json:"terminal"`
	// Branch instructions carry two continuations instead of one.
	Branch bool `json:"branch"`
	// NoImm instructions are written without an immediate.
	NoImm bool `json:"noImm"`
}

func (o Op) Info() Info {
	return infos[o]
}

// IsTerminal returns true if o ends an instruction chain.
func (o Op) IsTerminal() bool {
	return infos[o].Terminal
}

var infos = map[Op]Info{
	End:   {Terminal: true},
	If:    {Branch: true},
	Debug: {NoImm: true},
}
