package pcf

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrParamMissing is returned when a reply does not carry a parameter.
	ErrParamMissing = errors.New("parameter missing")
	// ErrParamType is returned when a parameter has an unexpected type.
	ErrParamType = errors.New("parameter type mismatch")
)

// Reply is one PCF response message: a set of typed parameters.
type Reply struct {
	params map[Param]any
}

// NewReply builds a reply from params. The map is copied.
func NewReply(params map[Param]any) *Reply {
	r := &Reply{params: make(map[Param]any, len(params))}
	for k, v := range params {
		r.params[k] = v
	}
	return r
}

// Set stores a parameter value and returns r.
func (r *Reply) Set(p Param, v any) *Reply {
	if r.params == nil {
		r.params = make(map[Param]any)
	}
	r.params[p] = v
	return r
}

// Has reports whether the reply carries p.
func (r *Reply) Has(p Param) bool {
	_, ok := r.params[p]
	return ok
}

// Params returns the parameter names carried by r, sorted.
func (r *Reply) Params() []Param {
	out := make([]Param, 0, len(r.params))
	for p := range r.params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Raw returns the untyped value of p.
func (r *Reply) Raw(p Param) (any, bool) {
	v, ok := r.params[p]
	return v, ok
}

func (r *Reply) lookup(p Param) (any, error) {
	v, ok := r.params[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParamMissing, p)
	}
	return v, nil
}

func typeErr(p Param, want string, v any) error {
	return fmt.Errorf("%w: %s is %T, want %s", ErrParamType, p, v, want)
}

// String returns a string parameter.
func (r *Reply) String(p Param) (string, error) {
	v, err := r.lookup(p)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(p, "string", v)
	}
	return s, nil
}

// Int returns an integer parameter.
func (r *Reply) Int(p Param) (int64, error) {
	v, err := r.lookup(p)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, typeErr(p, "integer", v)
	}
}

// IntList returns an integer list parameter.
func (r *Reply) IntList(p Param) ([]int64, error) {
	v, err := r.lookup(p)
	if err != nil {
		return nil, err
	}
	switch l := v.(type) {
	case []int64:
		return append([]int64(nil), l...), nil
	case []int32:
		out := make([]int64, len(l))
		for i, n := range l {
			out[i] = int64(n)
		}
		return out, nil
	default:
		return nil, typeErr(p, "integer list", v)
	}
}

// StringList returns a string list parameter.
func (r *Reply) StringList(p Param) ([]string, error) {
	v, err := r.lookup(p)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]string)
	if !ok {
		return nil, typeErr(p, "string list", v)
	}
	return append([]string(nil), l...), nil
}

// Bytes returns a byte-string parameter. Transports that surface byte
// strings as Go strings are accepted.
func (r *Reply) Bytes(p Param) ([]byte, error) {
	v, err := r.lookup(p)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), nil
	case string:
		return []byte(b), nil
	default:
		return nil, typeErr(p, "byte string", v)
	}
}

// Symbol returns an enumerated integer parameter.
func (r *Reply) Symbol(p Param) (Symbol, error) {
	v, err := r.lookup(p)
	if err != nil {
		return "", err
	}
	s, ok := v.(Symbol)
	if !ok {
		return "", typeErr(p, "symbol", v)
	}
	return s, nil
}
