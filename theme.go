package main

import "github.com/charmbracelet/lipgloss"

// ---------------------------------------------------------------------------
// Catppuccin Mocha palette - true-color hex values
// https://catppuccin.com/palette
// ---------------------------------------------------------------------------

const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
	colorBase     lipgloss.Color = "#1e1e2e"
	colorMantle   lipgloss.Color = "#181825"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	tabStyle       = lipgloss.NewStyle().Foreground(colorSubtext0).Padding(0, 1)
	tabActiveStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface0).Bold(true).Padding(0, 1)

	cellPromptStyle   = lipgloss.NewStyle().Foreground(colorBlue)
	cellBusyStyle     = lipgloss.NewStyle().Foreground(colorPeach)
	cellSelectedStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface0)
	cellMarkdownStyle = lipgloss.NewStyle().Foreground(colorTeal)
	cellRawStyle      = lipgloss.NewStyle().Foreground(colorOverlay0)
	outputStyle       = lipgloss.NewStyle().Foreground(colorSubtext0)
	outputErrStyle    = lipgloss.NewStyle().Foreground(colorRed)

	statusBarStyle  = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface0).Padding(0, 1)
	statusErrStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	statusDirtyMark = lipgloss.NewStyle().Foreground(colorYellow)
	footerStyle     = lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorMantle).Padding(0, 1)

	kernelIdleStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	kernelBusyStyle     = lipgloss.NewStyle().Foreground(colorPeach)
	kernelStartingStyle = lipgloss.NewStyle().Foreground(colorYellow)
	kernelDeadStyle     = lipgloss.NewStyle().Foreground(colorRed)

	modalStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMauve).Padding(0, 1)
	modalTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorMauve)
	cursorStyle     = lipgloss.NewStyle().Foreground(colorMauve).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(colorOverlay0)

	logDebugStyle = lipgloss.NewStyle().Foreground(colorOverlay0)
	logInfoStyle  = lipgloss.NewStyle().Foreground(colorText)
	logWarnStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	logErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
)
