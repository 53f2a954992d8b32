// Package registry holds the static catalog of content sequences and answers
// path lookups against it.
package registry

import (
	"errors"
	"fmt"

	"github.com/dgallion1/taxguide/internal/content"
)

// Configuration errors. They are fatal: a registry that fails validation
// must abort startup.
var (
	ErrEmptySequence     = errors.New("empty sequence")
	ErrDuplicateSequence = errors.New("duplicate sequence id")
	ErrDuplicateKey      = errors.New("duplicate unit key")
	ErrDuplicatePath     = errors.New("duplicate unit path")
	ErrInvalidUnit       = errors.New("invalid unit")
)

type location struct {
	seq   int
	index int
}

// Registry is an immutable, validated set of sequences.
type Registry struct {
	sequences []content.Sequence
	byID      map[string]int
	byPath    map[string]location
}

// Resolution describes where a path sits in its owning sequence.
// The zero-valued miss has Index -1 and nil pointers.
type Resolution struct {
	Sequence *content.Sequence
	Index    int
	Current  *content.Unit
	Next     *content.Unit
	Prev     *content.Unit
}

// Found reports whether the path belonged to a sequence.
func (r Resolution) Found() bool {
	return r.Current != nil
}

func notFound() Resolution {
	return Resolution{Index: -1}
}

// New validates and indexes the given sequences. Units are copied; the
// caller's slices are never retained.
func New(seqs ...content.Sequence) (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]int, len(seqs)),
		byPath: make(map[string]location),
	}

	for si, in := range seqs {
		if in.ID == "" {
			return nil, fmt.Errorf("sequence #%d: %w: missing id", si, ErrEmptySequence)
		}
		if _, dup := r.byID[in.ID]; dup {
			return nil, fmt.Errorf("sequence %q: %w", in.ID, ErrDuplicateSequence)
		}
		if len(in.Units) == 0 {
			return nil, fmt.Errorf("sequence %q: %w", in.ID, ErrEmptySequence)
		}

		seq := content.Sequence{
			ID:    in.ID,
			Title: in.Title,
			Units: make([]content.Unit, 0, len(in.Units)),
		}
		keys := make(map[string]bool, len(in.Units))

		for ui, u := range in.Units {
			if u.Key == "" {
				return nil, fmt.Errorf("sequence %q unit #%d: %w: missing key", in.ID, ui, ErrInvalidUnit)
			}
			if u.Path == "" {
				return nil, fmt.Errorf("sequence %q unit %q: %w: missing path", in.ID, u.Key, ErrInvalidUnit)
			}
			if u.SequenceID == "" {
				u.SequenceID = in.ID
			} else if u.SequenceID != in.ID {
				return nil, fmt.Errorf("sequence %q unit %q: %w: declares sequence %q", in.ID, u.Key, ErrInvalidUnit, u.SequenceID)
			}
			if u.Kind == "" {
				u.Kind = defaultKind(u)
			}
			if !u.Kind.Valid() {
				return nil, fmt.Errorf("sequence %q unit %q: %w: unknown kind %q", in.ID, u.Key, ErrInvalidUnit, u.Kind)
			}
			if keys[u.Key] {
				return nil, fmt.Errorf("sequence %q: %w: %q", in.ID, ErrDuplicateKey, u.Key)
			}
			keys[u.Key] = true

			u.Path = content.NormalizePath(u.Path)
			if prev, dup := r.byPath[u.Path]; dup {
				owner := in.ID
				if prev.seq < len(r.sequences) {
					owner = r.sequences[prev.seq].ID
				}
				return nil, fmt.Errorf("sequence %q unit %q: %w: %s already registered by sequence %q", in.ID, u.Key, ErrDuplicatePath, u.Path, owner)
			}
			r.byPath[u.Path] = location{seq: len(r.sequences), index: len(seq.Units)}
			seq.Units = append(seq.Units, u)
		}

		r.byID[seq.ID] = len(r.sequences)
		r.sequences = append(r.sequences, seq)
	}

	return r, nil
}

func defaultKind(u content.Unit) content.Kind {
	if u.DataRef == "" {
		return content.KindStatic
	}
	return content.KindDocument
}

// Resolve looks up the unit addressed by path. A miss is not an error; it
// returns a Resolution whose Found reports false.
func (r *Registry) Resolve(path string) Resolution {
	loc, ok := r.byPath[content.NormalizePath(path)]
	if !ok {
		return notFound()
	}
	seq := &r.sequences[loc.seq]
	res := Resolution{
		Sequence: seq,
		Index:    loc.index,
		Current:  &seq.Units[loc.index],
	}
	if loc.index > 0 {
		res.Prev = &seq.Units[loc.index-1]
	}
	if loc.index+1 < len(seq.Units) {
		res.Next = &seq.Units[loc.index+1]
	}
	return res
}

// Successor returns the unit that immediately follows u in its owning
// sequence.
func (r *Registry) Successor(u content.Unit) (content.Unit, bool) {
	res := r.Resolve(u.Path)
	if !res.Found() || res.Next == nil || res.Current.SequenceID != u.SequenceID {
		return content.Unit{}, false
	}
	return *res.Next, true
}

// Sequence returns the sequence registered under id.
func (r *Registry) Sequence(id string) (content.Sequence, bool) {
	i, ok := r.byID[id]
	if !ok {
		return content.Sequence{}, false
	}
	return r.sequences[i], true
}

// Sequences returns all sequences in registration order.
func (r *Registry) Sequences() []content.Sequence {
	out := make([]content.Sequence, len(r.sequences))
	copy(out, r.sequences)
	return out
}

// Units returns every unit, sequence by sequence, in reading order.
func (r *Registry) Units() []content.Unit {
	var out []content.Unit
	for _, s := range r.sequences {
		out = append(out, s.Units...)
	}
	return out
}
