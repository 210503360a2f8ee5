package config

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrSizeType is returned for size values that are neither an integer nor a
// pair of integers
var ErrSizeType = errors.New("`new_size` type is incorrect")

// Pair is a (height, width) pair. In YAML it is written either as a single
// integer, meaning a square, or as a two-element sequence.
type Pair struct {
	H, W int
}

func (p Pair) String() string { return fmt.Sprintf("%dx%d", p.H, p.W) }

// IsZero reports whether both dimensions are unset
func (p Pair) IsZero() bool { return p.H == 0 && p.W == 0 }

// Area returns H·W
func (p Pair) Area() int { return p.H * p.W }

// UnmarshalYAML implements yaml.Unmarshaler
func (p *Pair) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodePair(node)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (p Pair) MarshalYAML() (interface{}, error) {
	if p.H == p.W {
		return p.H, nil
	}
	return []int{p.H, p.W}, nil
}

// Sizes is a set of candidate target sizes. It accepts null, a single
// integer, or a sequence whose items are integers or [h, w] pairs.
type Sizes []Pair

// UnmarshalYAML implements yaml.Unmarshaler
func (s *Sizes) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*s = nil
			return nil
		}
		p, err := decodePair(node)
		if err != nil {
			return err
		}
		*s = Sizes{p}
		return nil

	case yaml.SequenceNode:
		out := make(Sizes, 0, len(node.Content))
		for _, item := range node.Content {
			p, err := decodePair(item)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		if len(out) == 0 {
			out = nil
		}
		*s = out
		return nil
	}
	return errors.Wrapf(ErrSizeType, "line %d", node.Line)
}

func decodePair(node *yaml.Node) (Pair, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var v int
		if node.ShortTag() != "!!int" {
			return Pair{}, errors.Wrapf(ErrSizeType, "line %d: %q", node.Line, node.Value)
		}
		if err := node.Decode(&v); err != nil {
			return Pair{}, errors.Wrapf(ErrSizeType, "line %d: %v", node.Line, err)
		}
		return Pair{H: v, W: v}, nil

	case yaml.SequenceNode:
		var v []int
		if err := node.Decode(&v); err != nil || len(v) != 2 {
			return Pair{}, errors.Wrapf(ErrSizeType, "line %d: want [h, w]", node.Line)
		}
		return Pair{H: v[0], W: v[1]}, nil
	}
	return Pair{}, errors.Wrapf(ErrSizeType, "line %d", node.Line)
}
