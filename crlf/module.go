package crlf

import (
	"iter"
)

// Defs is an insertion ordered table of module definitions.
// A name may be reserved before its value is known.
type Defs struct {
	names  []string
	values map[string]Node
}

func NewDefs() *Defs {
	return &Defs{values: make(map[string]Node)}
}

// Reserve allocates a slot for name, with no value.
// It returns false if the name already has a slot.
func (d *Defs) Reserve(name string) bool {
	if _, exists := d.values[name]; exists {
		return false
	}
	d.names = append(d.names, name)
	d.values[name] = nil
	return true
}

// Put sets the value for name, allocating a slot at the end if needed.
func (d *Defs) Put(name string, x Node) {
	if _, exists := d.values[name]; !exists {
		d.names = append(d.names, name)
	}
	d.values[name] = x
}

// Get returns the value for name.
// A reserved name with no value yet returns (nil, true).
func (d *Defs) Get(name string) (Node, bool) {
	x, ok := d.values[name]
	return x, ok
}

// Has returns true if name has a slot, filled or not.
func (d *Defs) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

func (d *Defs) Len() int {
	return len(d.names)
}

// Names returns the names in insertion order.
func (d *Defs) Names() []string {
	return append([]string{}, d.names...)
}

// All iterates over the definitions in insertion order.
func (d *Defs) All() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		for _, name := range d.names {
			if !yield(name, d.values[name]) {
				return
			}
		}
	}
}

// Module is the output of compiling one source file.
type Module struct {
	// Import maps local names to imported module specifiers. It is always empty here.
	Import map[string]string
	// Define holds every definition made by the module.
	Define *Defs
	// Export lists the names visible to other modules.
	Export []string
}

// Lang is the language tag written in the JSON encoding of a module.
const Lang = "uFork"
