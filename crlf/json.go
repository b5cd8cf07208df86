package crlf

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToJSON converts x into values which encoding/json writes in the CRLF JSON format.
func ToJSON(x Node) (any, error) {
	switch x := x.(type) {
	case Fixnum:
		return int64(x), nil
	case Symbol:
		return string(x), nil
	case Keyword:
		return string(x), nil
	case Literal:
		return map[string]any{"kind": "literal", "value": x.String()}, nil
	case Type:
		if x.IsNamed() {
			return map[string]any{"kind": "type", "name": x.Name()}, nil
		}
		return map[string]any{"kind": "type", "arity": x.Arity}, nil
	case *Ref:
		ret := map[string]any{"kind": "ref", "name": x.Name}
		if x.Module != "" {
			ret["module"] = x.Module
		}
		return ret, nil
	case *Pair:
		return jsonFields("pair", "head", x.Head, "tail", x.Tail)
	case *Dict:
		return jsonFields("dict", "key", x.Key, "value", x.Value, "next", x.Next)
	case *Instr:
		ret, err := jsonFields("instr", "imm", x.Imm, "k", x.K)
		if err != nil {
			return nil, err
		}
		ret["op"] = x.Op.String()
		return ret, nil
	case *If:
		ret, err := jsonFields("instr", "t", x.T, "f", x.F)
		if err != nil {
			return nil, err
		}
		ret["op"] = "if"
		return ret, nil
	case *Quad:
		return jsonFields("quad", "t", x.T, "x", x.X, "y", x.Y, "z", x.Z)
	default:
		return nil, fmt.Errorf("crlf: cannot encode %s as JSON", Kind(x))
	}
}

// jsonFields takes alternating field names and nodes. Nil nodes are omitted.
func jsonFields(kind string, kvs ...any) (map[string]any, error) {
	ret := map[string]any{"kind": kind}
	for i := 0; i < len(kvs); i += 2 {
		k := kvs[i].(string)
		if kvs[i+1] == nil {
			continue
		}
		v, ok := kvs[i+1].(Node)
		if !ok || v == nil {
			continue
		}
		enc, err := ToJSON(v)
		if err != nil {
			return nil, err
		}
		ret[k] = enc
	}
	return ret, nil
}

// MarshalNode encodes a single node as JSON.
func MarshalNode(x Node) ([]byte, error) {
	v, err := ToJSON(x)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// MarshalModule encodes a module as JSON, keeping definitions in order.
func MarshalModule(m *Module) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"lang":`)
	if err := writeJSON(&buf, Lang); err != nil {
		return nil, err
	}
	buf.WriteString(`,"ast":{"kind":"module","import":`)
	imports := m.Import
	if imports == nil {
		imports = map[string]string{}
	}
	if err := writeJSON(&buf, imports); err != nil {
		return nil, err
	}
	buf.WriteString(`,"define":{`)
	first := true
	for name, x := range m.Define.All() {
		if x == nil {
			return nil, fmt.Errorf("crlf: definition %q was reserved but never given a value", name)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeJSON(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		v, err := ToJSON(x)
		if err != nil {
			return nil, fmt.Errorf("crlf: definition %q: %w", name, err)
		}
		if err := writeJSON(&buf, v); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"export":`)
	exports := m.Export
	if exports == nil {
		exports = []string{}
	}
	if err := writeJSON(&buf, exports); err != nil {
		return nil, err
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, x any) error {
	data, err := json.Marshal(x)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
