// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output. Tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple, for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray, for subtitles and de-emphasized content.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green, for chosen packages and satisfied checks.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red, for errors and blockers.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber, for warnings and uninstall lists.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue, for atoms, flags and repository names.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// KeyStyle is for field labels, atoms and flag names.
	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// repoStyle renders "::repo" suffixes.
	repoStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)
)
