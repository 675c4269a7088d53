// Package attrs turns PCF replies into typed attribute records.
//
// Each attribute is a Rule: a name, the domain and sub-type it applies to,
// and a pure extraction function over the reply set. ExtractAll runs every
// matching rule and collects the results; a rule that fails is skipped, so
// partial records are normal.
package attrs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/getmockd/mqfacade/pkg/pcf"
)

// Name is an attribute name, e.g. "QUEUE_DEPTH".
type Name string

// Domain is the kind of object a rule describes.
type Domain string

// Domains.
const (
	Queue        Domain = "queue"
	Topic        Domain = "topic"
	Subscription Domain = "subscription"
)

// SubType selects the inquiry a rule reads within its domain.
type SubType string

// Sub-types. Queue rules have no sub-type.
const (
	None       SubType = ""
	Status     SubType = "status"
	Publisher  SubType = "publisher"
	Subscriber SubType = "subscriber"
	Definition SubType = "definition"
)

// Record is the result of an extraction.
type Record map[Name]any

// Merge copies every attribute of other into r and returns r.
func (r Record) Merge(other Record) Record {
	for k, v := range other {
		r[k] = v
	}
	return r
}

// Strings returns the record keyed by plain strings, for JSON output and
// expression environments.
func (r Record) Strings() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[string(k)] = v
	}
	return out
}

// DepthFunc reads the current depth of a queue.
type DepthFunc func(ctx context.Context, queue string) (int64, error)

// Input is what a rule extracts from.
type Input struct {
	Ctx     context.Context
	Replies []*pcf.Reply
	// Depth is used by rules that compose with the queue domain. May be nil.
	Depth DepthFunc
}

// ErrAbsent reports that the replies do not carry the attribute. It is not
// logged.
var ErrAbsent = errors.New("attribute absent")

// Rule extracts one attribute.
type Rule struct {
	Name    Name
	Domain  Domain
	SubType SubType
	Extract func(Input) (any, error)
}

// Set is a closed list of rules.
type Set []Rule

// ExtractAll runs every rule registered for (domain, sub) against in.
// Failing and panicking rules are skipped.
func (s Set) ExtractAll(domain Domain, sub SubType, in Input, log *slog.Logger) Record {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if in.Ctx == nil {
		in.Ctx = context.Background()
	}
	out := make(Record)
	for _, r := range s {
		if r.Domain != domain || r.SubType != sub {
			continue
		}
		v, err := run(r, in)
		switch {
		case errors.Is(err, ErrAbsent):
		case err != nil:
			log.Debug("attribute extraction failed", "attribute", r.Name, "domain", domain, "subType", sub, "error", err)
		default:
			out[r.Name] = v
		}
	}
	return out
}

func run(r Rule, in Input) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rule %s panicked: %v\n%s", r.Name, p, debug.Stack())
		}
	}()
	return r.Extract(in)
}

// NamesFor lists the rule names for (domain, sub) in declaration order.
func (s Set) NamesFor(domain Domain, sub SubType) []Name {
	var out []Name
	for _, r := range s {
		if r.Domain == domain && r.SubType == sub {
			out = append(out, r.Name)
		}
	}
	return out
}

// Rules is the full rule set.
var Rules = func() Set {
	var s Set
	s = append(s, queueRules...)
	s = append(s, topicRules...)
	s = append(s, subscriptionRules...)
	return s
}()

// ExtractAll runs the full rule set.
func ExtractAll(domain Domain, sub SubType, in Input, log *slog.Logger) Record {
	return Rules.ExtractAll(domain, sub, in, log)
}

// NamesFor lists the names in the full rule set.
func NamesFor(domain Domain, sub SubType) []Name {
	return Rules.NamesFor(domain, sub)
}

func first(in Input) (*pcf.Reply, error) {
	if len(in.Replies) == 0 {
		return nil, ErrAbsent
	}
	return in.Replies[0], nil
}

// missing converts a missing-parameter error into ErrAbsent.
func missing(err error) error {
	if errors.Is(err, pcf.ErrParamMissing) {
		return ErrAbsent
	}
	return err
}

func intRule(name Name, d Domain, sub SubType, p pcf.Param) Rule {
	return Rule{Name: name, Domain: d, SubType: sub, Extract: func(in Input) (any, error) {
		r, err := first(in)
		if err != nil {
			return nil, err
		}
		n, err := r.Int(p)
		if err != nil {
			return nil, missing(err)
		}
		return n, nil
	}}
}

func stringRule(name Name, d Domain, sub SubType, p pcf.Param) Rule {
	return Rule{Name: name, Domain: d, SubType: sub, Extract: func(in Input) (any, error) {
		r, err := first(in)
		if err != nil {
			return nil, err
		}
		s, err := r.String(p)
		if err != nil {
			return nil, missing(err)
		}
		return trim(s), nil
	}}
}

func timeRule(name Name, d Domain, sub SubType, date, clock pcf.Param) Rule {
	return Rule{Name: name, Domain: d, SubType: sub, Extract: func(in Input) (any, error) {
		r, err := first(in)
		if err != nil {
			return nil, err
		}
		return replyTimestamp(r, date, clock)
	}}
}

func symbolRule(name Name, d Domain, sub SubType, p pcf.Param, want pcf.Symbol) Rule {
	return Rule{Name: name, Domain: d, SubType: sub, Extract: func(in Input) (any, error) {
		r, err := first(in)
		if err != nil {
			return nil, err
		}
		s, err := r.Symbol(p)
		if err != nil {
			return nil, missing(err)
		}
		return s == want, nil
	}}
}
