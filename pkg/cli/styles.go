package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/taghound/taghound/pkg/types"
)

// Color palette - professional, subtle colors inspired by modern CLIs
var (
	ColorPrimary = lipgloss.Color("#14B8A6") // Teal - brand color
	ColorSuccess = lipgloss.Color("#22C55E") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue
	ColorSubtle  = lipgloss.Color("#6B7280") // Gray
	ColorMuted   = lipgloss.Color("#9CA3AF") // Light gray
)

// Symbols for consistent visual language
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "!"
	SymbolInfo    = "→"
	SymbolBullet  = "•"
)

// Text styles
var (
	// Brand
	BrandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// Status styles
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	// Text variations
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	// Key-value styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(12)

	// Table styles
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorSubtle).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(ColorSubtle)

	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	// Directory names in listings
	DirStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	// Code/path style
	CodeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	// Hint style for suggestions
	HintStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)
)

// tagColorStyles maps annotation colors to terminal colors matching the
// palette files carry in their tag metadata.
var tagColorStyles = map[types.TagColor]lipgloss.Style{
	types.TagColorGray:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
	types.TagColorGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")),
	types.TagColorPurple: lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7")),
	types.TagColorBlue:   lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
	types.TagColorYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")),
	types.TagColorRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	types.TagColorOrange: lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316")),
}

// RenderTag renders a tag name tinted with its annotation color.
func RenderTag(name string, color types.TagColor) string {
	if style, ok := tagColorStyles[color]; ok {
		return style.Render(name)
	}
	return name
}
