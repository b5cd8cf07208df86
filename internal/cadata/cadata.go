// package cadata provides interfaces for Content Addressed Data Storage
//
// It is based on the package in go.brendoncarroll.net/state/cadata
package cadata

import (
	"bytes"
	"context"
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"go.brendoncarroll.net/state"
	"go.brendoncarroll.net/state/kv"
)

var _ driver.Valuer = ID{}

const (
	IDSize = 32
	// Base64Alphabet is used when encoding IDs as base64 strings.
	// It is a URL and filepath safe encoding, which maintains ordering.
	Base64Alphabet = "-0123456789" + "ABCDEFGHIJKLMNOPQRSTUVWXYZ" + "_" + "abcdefghijklmnopqrstuvwxyz"
)

// ID identifies a particular piece of data
type ID [IDSize]byte

func IDFromBytes(x []byte) ID {
	id := ID{}
	copy(id[:], x)
	return id
}

var enc = base64.NewEncoding(Base64Alphabet).WithPadding(base64.NoPadding)

func (id ID) String() string {
	return enc.EncodeToString(id[:])
}

// ParseID decodes an ID from its string form.
func ParseID(s string) (ID, error) {
	var id ID
	n, err := enc.Decode(id[:], []byte(s))
	if err != nil {
		return ID{}, err
	}
	if n != IDSize {
		return ID{}, errors.New("base64 string is too short")
	}
	return id, nil
}

func (a ID) Compare(b ID) int {
	return bytes.Compare(a[:], b[:])
}

func (id ID) IsZero() bool {
	return id == (ID{})
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id2, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = id2
	return nil
}

func (id *ID) Scan(x any) error {
	switch x := x.(type) {
	case []byte:
		if len(x) != IDSize {
			return fmt.Errorf("wrong length for cadata.ID HAVE: %d WANT: %d", len(x), IDSize)
		}
		*id = IDFromBytes(x)
		return nil
	default:
		return fmt.Errorf("cannot scan type %T", x)
	}
}

func (id ID) Value() (driver.Value, error) {
	return id[:], nil
}

// Successor returns the ID immediately after this ID
func (id ID) Successor() ID {
	for i := len(id) - 1; i >= 0; i-- {
		id[i]++
		if id[i] != 0 {
			break
		}
	}
	return id
}

type HashFunc = func(x []byte) ID

type Poster interface {
	Post(ctx context.Context, data []byte) (ID, error)
}

type Getter interface {
	Get(ctx context.Context, id *ID, buf []byte) (int, error)
}

type Exister interface {
	Exists(ctx context.Context, id *ID) (bool, error)
}

type Deleter interface {
	Delete(ctx context.Context, id *ID) error
}

type Span = state.Span[ID]

type Lister interface {
	List(ctx context.Context, span Span, ids []ID) (int, error)
}

type Store interface {
	Poster
	Getter
	Exister
	Deleter
	Lister
	// MaxSize is the largest blob the store will accept.
	MaxSize() int
}

func ForEach(ctx context.Context, x Lister, span Span, fn func(ID) error) error {
	return kv.ForEach[ID](ctx, x, span, fn)
}

// GetBytes reads the blob at id into a new buffer.
// It checks that the data hashes to id.
func GetBytes(ctx context.Context, s Store, hf HashFunc, id ID) ([]byte, error) {
	buf := make([]byte, s.MaxSize())
	n, err := s.Get(ctx, &id, buf)
	if err != nil {
		return nil, err
	}
	if err := Check(hf, &id, buf[:n]); err != nil {
		return nil, err
	}
	return buf[:n], nil
}

var (
	ErrTooLarge = errors.New("data is too large for store")
)

type ErrNotFound struct {
	Key *ID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no data found for %v in store", e.Key)
}

func IsNotFound(err error) bool {
	return errors.As(err, &ErrNotFound{})
}

type ErrBadData struct {
	Have ID
	Want ID
}

func (e ErrBadData) Error() string {
	return fmt.Sprintf("bad data. HAVE: %v WANT: %v", e.Have, e.Want)
}

func Check(hf HashFunc, expectedID *ID, data []byte) error {
	actualID := hf(data)
	if subtle.ConstantTimeCompare(actualID[:], expectedID[:]) != 1 {
		return ErrBadData{Have: actualID, Want: *expectedID}
	}
	return nil
}

func BeginFromSpan(x Span) ID {
	lb, ok := x.LowerBound()
	if !ok {
		return ID{}
	}
	if !x.IncludesLower() {
		lb = lb.Successor()
	}
	return lb
}
