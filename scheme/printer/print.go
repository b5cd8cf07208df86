// package printer renders IR nodes in a Scheme-like syntax, for diagnostics and tests.
package printer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ufork.dev/uscheme/crlf"
)

type Node = crlf.Node

// Writer is used by the Print functions
type Writer interface {
	io.Writer
	io.StringWriter
	io.ByteWriter
}

type Printer struct{}

func (p Printer) PrintString(x Node) string {
	sb := strings.Builder{}
	if err := p.Print(&sb, x); err != nil {
		return err.Error()
	}
	return sb.String()
}

func (p Printer) Print(w Writer, x Node) error {
	return p.printNode(w, x)
}

func (p Printer) printNode(w Writer, x Node) error {
	switch x := x.(type) {
	case *crlf.Pair:
		return p.printList(w, x)
	case *crlf.Dict:
		if err := w.WriteByte('{'); err != nil {
			return err
		}
		var next Node = x
		for i := 0; ; i++ {
			d, ok := next.(*crlf.Dict)
			if !ok {
				break
			}
			if i > 0 {
				if err := w.WriteByte(','); err != nil {
					return err
				}
			}
			if err := p.printNode(w, d.Key); err != nil {
				return err
			}
			if err := w.WriteByte(':'); err != nil {
				return err
			}
			if err := p.printNode(w, d.Value); err != nil {
				return err
			}
			next = d.Next
		}
		return w.WriteByte('}')
	case *crlf.Instr:
		return p.printRecord(w, "#instr_t", x.Op.String(), x.Imm, x.K)
	case *crlf.If:
		return p.printRecord(w, "#instr_t", "if", x.T, x.F)
	case *crlf.Quad:
		if _, err := w.WriteString("["); err != nil {
			return err
		}
		if err := p.printNode(w, x.T); err != nil {
			return err
		}
		for _, f := range x.Fields() {
			if _, err := w.WriteString(", "); err != nil {
				return err
			}
			if err := p.printNode(w, f); err != nil {
				return err
			}
		}
		_, err := w.WriteString("]")
		return err

	// Leaves
	case crlf.Literal:
		_, err := w.WriteString(literalString(x))
		return err
	case crlf.Type:
		name := "unknown"
		if x.IsNamed() {
			name = x.Name()
		}
		_, err := w.WriteString("#" + name + "_t")
		return err
	case crlf.Fixnum:
		_, err := w.WriteString(strconv.FormatInt(int64(x), 10))
		return err
	case crlf.Symbol:
		_, err := w.WriteString(string(x))
		return err
	case crlf.Keyword:
		_, err := w.WriteString(string(x))
		return err
	case *crlf.Ref:
		name := x.Name
		if x.Module != "" {
			name = x.Module + "." + name
		}
		_, err := w.WriteString(name)
		return err
	case nil:
		_, err := w.WriteString("#?")
		return err
	default:
		return fmt.Errorf("printer: cannot print %T", x)
	}
}

func (p Printer) printList(w Writer, x *crlf.Pair) error {
	if err := w.WriteByte('('); err != nil {
		return err
	}
	var next Node = x
	for i := 0; ; i++ {
		pair, ok := next.(*crlf.Pair)
		if !ok {
			break
		}
		if i > 0 {
			if err := w.WriteByte(' '); err != nil {
				return err
			}
		}
		if err := p.printNode(w, pair.Head); err != nil {
			return err
		}
		next = pair.Tail
	}
	if next != crlf.Node(crlf.Nil) {
		if _, err := w.WriteString(" . "); err != nil {
			return err
		}
		if err := p.printNode(w, next); err != nil {
			return err
		}
	}
	return w.WriteByte(')')
}

func (p Printer) printRecord(w Writer, tag, op string, a, b Node) error {
	if _, err := w.WriteString("[" + tag + ", " + op + ", "); err != nil {
		return err
	}
	if err := p.printNode(w, a); err != nil {
		return err
	}
	if _, err := w.WriteString(", "); err != nil {
		return err
	}
	if err := p.printNode(w, b); err != nil {
		return err
	}
	_, err := w.WriteString("]")
	return err
}

func literalString(x crlf.Literal) string {
	switch x {
	case crlf.Undef:
		return "#?"
	case crlf.Nil:
		return "()"
	case crlf.False:
		return "#f"
	case crlf.True:
		return "#t"
	case crlf.Unit:
		return "#unit"
	default:
		return "#?"
	}
}

// PrintString renders x with the default Printer.
func PrintString(x Node) string {
	return Printer{}.PrintString(x)
}
