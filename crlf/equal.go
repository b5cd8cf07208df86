package crlf

// Equal returns true if x and y are structurally equal.
//
// Dictionaries are compared entry by entry in insertion order, so two
// dictionaries holding the same entries in a different order are not equal.
func Equal(x, y Node) bool {
	for {
		switch a := x.(type) {
		case nil:
			return y == nil
		case Literal:
			b, ok := y.(Literal)
			return ok && a == b
		case Type:
			b, ok := y.(Type)
			return ok && a == b
		case Fixnum:
			b, ok := y.(Fixnum)
			return ok && a == b
		case Symbol:
			b, ok := y.(Symbol)
			return ok && a == b
		case Keyword:
			b, ok := y.(Keyword)
			return ok && a == b
		case *Ref:
			b, ok := y.(*Ref)
			return ok && a.Name == b.Name && a.Module == b.Module
		case *Pair:
			bp, ok := y.(*Pair)
			if !ok {
				return false
			}
			if a == bp {
				return true
			}
			if !Equal(a.Head, bp.Head) {
				return false
			}
			x, y = a.Tail, bp.Tail
			continue
		case *Dict:
			bd, ok := y.(*Dict)
			if !ok {
				return false
			}
			if a == bd {
				return true
			}
			if !Equal(a.Key, bd.Key) || !Equal(a.Value, bd.Value) {
				return false
			}
			x, y = a.Next, bd.Next
			continue
		case *Instr:
			bi, ok := y.(*Instr)
			if !ok {
				return false
			}
			if a == bi {
				return true
			}
			if a.Op != bi.Op || !Equal(a.Imm, bi.Imm) {
				return false
			}
			x, y = a.K, bi.K
			continue
		case *If:
			bi, ok := y.(*If)
			if !ok {
				return false
			}
			return a == bi || (Equal(a.T, bi.T) && Equal(a.F, bi.F))
		case *Quad:
			bq, ok := y.(*Quad)
			if !ok {
				return false
			}
			if a == bq {
				return true
			}
			return Equal(a.T, bq.T) && Equal(a.X, bq.X) && Equal(a.Y, bq.Y) && Equal(a.Z, bq.Z)
		default:
			return false
		}
	}
}
