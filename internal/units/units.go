// Package units converts between document space (points), render space and
// display space (pixels). All coordinate arithmetic in the program goes
// through here so that every space conversion uses the same formula.
//
// A display scale s means display_px = document_pt * s. Render space is the
// special case s = base scale (zoom 1.0).
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"union-bug-placer/pkg/geometry"

	"gonum.org/v1/gonum/floats/scalar"
)

// PointsPerInch is the number of PDF points in one inch.
const PointsPerInch = 72.0

// Tolerance is the absolute tolerance used when comparing converted values.
const Tolerance = 1e-9

// ErrInvalidNumber is returned when user-entered text is not a finite number.
var ErrInvalidNumber = errors.New("not a valid number")

// ToDocument converts a display-space point to document space.
func ToDocument(p geometry.Point2D, displayScale float64) geometry.Point2D {
	return geometry.Point2D{X: p.X / displayScale, Y: p.Y / displayScale}
}

// ToDisplay converts a document-space point to display space.
func ToDisplay(p geometry.Point2D, displayScale float64) geometry.Point2D {
	return geometry.Point2D{X: p.X * displayScale, Y: p.Y * displayScale}
}

// RectToDisplay converts a document-space rectangle to display space.
func RectToDisplay(r geometry.Rect, displayScale float64) geometry.Rect {
	return DisplayTransform(displayScale).ApplyRect(r)
}

// DisplayTransform returns the document-to-display transform for a scale.
func DisplayTransform(displayScale float64) geometry.AffineTransform {
	return geometry.Scale(displayScale, displayScale)
}

// InchesToPoints converts inches to points.
func InchesToPoints(v float64) float64 {
	return v * PointsPerInch
}

// PointsToInches converts points to inches.
func PointsToInches(v float64) float64 {
	return v / PointsPerInch
}

// PointToInches converts a document-space point to inches.
func PointToInches(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: PointsToInches(p.X), Y: PointsToInches(p.Y)}
}

// InchesToPoint converts a position given in inches to document space.
func InchesToPoint(xIn, yIn float64) geometry.Point2D {
	return geometry.Point2D{X: InchesToPoints(xIn), Y: InchesToPoints(yIn)}
}

// FormatCoord formats an inch coordinate for display (3 decimals).
func FormatCoord(inches float64) string {
	return strconv.FormatFloat(roundTo(inches, 3), 'f', 3, 64)
}

// FormatSize formats an inch size for display (2 decimals).
func FormatSize(inches float64) string {
	return strconv.FormatFloat(roundTo(inches, 2), 'f', 2, 64)
}

// ParseInches parses a user-entered inch value. Surrounding whitespace and
// a trailing `in` or `"` are accepted.
func ParseInches(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, "in")
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", text, ErrInvalidNumber)
	}
	return v, nil
}

// Equal reports whether two points agree within Tolerance.
func Equal(a, b geometry.Point2D) bool {
	return scalar.EqualWithinAbs(a.X, b.X, Tolerance) &&
		scalar.EqualWithinAbs(a.Y, b.Y, Tolerance)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // avoid "-0.000"
	}
	return r
}
