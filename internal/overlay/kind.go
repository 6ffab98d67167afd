// Package overlay holds the placement model for the graphics that get
// stamped onto a page: which kinds exist, how each picks its asset variant,
// and where each instance is anchored.
package overlay

import (
	"errors"
	"fmt"

	"union-bug-placer/pkg/colorutil"
)

// Kind identifies an overlay graphic.
type Kind int

const (
	KindBug     Kind = iota // union bug, light or dark by contrast
	KindIndicia             // postal indicia, single asset
)

// Kinds lists every overlay kind in display order.
func Kinds() []Kind {
	return []Kind{KindBug, KindIndicia}
}

func (k Kind) String() string {
	switch k {
	case KindBug:
		return "bug"
	case KindIndicia:
		return "indicia"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Label returns the user-facing name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindBug:
		return "Union Bug"
	case KindIndicia:
		return "Indicia"
	default:
		return k.String()
	}
}

// ParseKind parses the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown overlay kind %q", s)
}

// Variant identifies which asset of a kind is used.
type Variant int

const (
	VariantFixed Variant = iota // the only asset of a single-asset kind
	VariantLight                // light-coloured artwork, for dark backgrounds
	VariantDark                 // dark-coloured artwork, for light backgrounds
)

func (v Variant) String() string {
	switch v {
	case VariantFixed:
		return "fixed"
	case VariantLight:
		return "light"
	case VariantDark:
		return "dark"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// LuminanceFunc samples the background luminance at a placement.
type LuminanceFunc func() (float64, error)

// Policy chooses the asset variant for a placement.
type Policy interface {
	Select(sample LuminanceFunc) (Variant, error)
	Variants() []Variant
}

// ContrastPolicy picks the light variant on dark backgrounds
// (see colorutil.IsDark) and the dark variant otherwise. If sampling fails the
// dark variant is returned along with the error.
type ContrastPolicy struct{}

func (ContrastPolicy) Select(sample LuminanceFunc) (Variant, error) {
	if sample == nil {
		return VariantDark, errors.New("no luminance sample")
	}
	l, err := sample()
	if err != nil {
		return VariantDark, err
	}
	if colorutil.IsDark(l) {
		return VariantLight, nil
	}
	return VariantDark, nil
}

func (ContrastPolicy) Variants() []Variant {
	return []Variant{VariantLight, VariantDark}
}

// FixedPolicy always uses the single asset and never samples.
type FixedPolicy struct{}

func (FixedPolicy) Select(LuminanceFunc) (Variant, error) {
	return VariantFixed, nil
}

func (FixedPolicy) Variants() []Variant {
	return []Variant{VariantFixed}
}

// Spec describes the behaviour and size limits of a kind.
type Spec struct {
	Kind         Kind
	Policy       Policy
	DefaultWidth float64 // inches
	MinWidth     float64 // inches, size control lower bound
	MaxWidth     float64 // inches, size control upper bound
}

// SpecFor returns the built-in spec for k.
func SpecFor(k Kind) Spec {
	switch k {
	case KindIndicia:
		return Spec{Kind: k, Policy: FixedPolicy{}, DefaultWidth: 1.0, MinWidth: 0.25, MaxWidth: 4.0}
	default:
		return Spec{Kind: KindBug, Policy: ContrastPolicy{}, DefaultWidth: 0.3, MinWidth: 0.1, MaxWidth: 2.0}
	}
}
