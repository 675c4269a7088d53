// Package filter selects object names by include/exclude patterns and
// attribute records by boolean expressions.
package filter

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// RegexpPrefix marks a pattern as an anchored regular expression instead of
// a glob.
const RegexpPrefix = "re:"

type matcher func(string) bool

// Filter matches trimmed object names. Exclude is checked before include;
// an empty pattern does not constrain. The zero Filter and a nil *Filter
// match everything.
type Filter struct {
	exclude, include       matcher
	excludeSrc, includeSrc string
}

// New compiles exclude and include patterns. Malformed patterns fail with
// mqerr.InvalidArgument.
func New(exclude, include string) (*Filter, error) {
	f := &Filter{excludeSrc: strings.TrimSpace(exclude), includeSrc: strings.TrimSpace(include)}
	var err error
	if f.exclude, err = compile("exclude", f.excludeSrc); err != nil {
		return nil, err
	}
	if f.include, err = compile("include", f.includeSrc); err != nil {
		return nil, err
	}
	return f, nil
}

// MustNew is like New but panics on error.
func MustNew(exclude, include string) *Filter {
	f, err := New(exclude, include)
	if err != nil {
		panic(err)
	}
	return f
}

func compile(which, pattern string) (matcher, error) {
	if pattern == "" {
		return nil, nil
	}
	if expr, ok := strings.CutPrefix(pattern, RegexpPrefix); ok {
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, mqerr.Errorf(mqerr.InvalidArgument, "filter.compile", "%s pattern %q: %v", which, pattern, err)
		}
		return re.MatchString, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "filter.compile", "%s pattern %q is not a valid glob", which, pattern)
	}
	return func(name string) bool {
		ok, err := doublestar.Match(pattern, name)
		return err == nil && ok
	}, nil
}

// Match reports whether name passes the filter.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	name = strings.TrimSpace(name)
	if f.exclude != nil && f.exclude(name) {
		return false
	}
	if f.include != nil && !f.include(name) {
		return false
	}
	return true
}

// Apply returns the entries of names whose key passes the filter. The
// input is not modified.
func (f *Filter) Apply(names map[string]string) map[string]string {
	out := make(map[string]string, len(names))
	for k, v := range names {
		if f.Match(k) {
			out[k] = v
		}
	}
	return out
}

// String describes the filter.
func (f *Filter) String() string {
	if f == nil {
		return "exclude= include="
	}
	return "exclude=" + f.excludeSrc + " include=" + f.includeSrc
}
