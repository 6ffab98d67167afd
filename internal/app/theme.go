package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Union blue and the shade used on dark backgrounds.
var (
	unionBlue      = color.NRGBA{R: 0x1F, G: 0x4E, B: 0x9C, A: 0xFF}
	unionBlueLight = color.NRGBA{R: 0x5B, G: 0x8D, B: 0xE0, A: 0xFF}
)

// PlacerTheme keeps fyne's defaults except for the union blue accents and
// a scrollbar wide enough to grab when panning a zoomed page.
type PlacerTheme struct{}

var _ fyne.Theme = (*PlacerTheme)(nil)

func (t *PlacerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	accent := unionBlue
	if variant == theme.VariantDark {
		accent = unionBlueLight
	}
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameHyperlink:
		return accent
	case theme.ColorNameFocus, theme.ColorNameSelection:
		a := accent
		a.A = 0x55
		return a
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *PlacerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *PlacerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *PlacerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16
	case theme.SizeNameScrollBarSmall:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
