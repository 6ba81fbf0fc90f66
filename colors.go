package main

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	BulletStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingRight(1)
	TextStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	DimTextStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	SpinnerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	TimestampStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)
	ItemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	SelectedItemStyle = lipgloss.NewStyle().PaddingLeft(0).Foreground(lipgloss.Color("3"))
	ErrorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	SuccessStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	// Timeline bar
	BarBaseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	BarRangeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	BarHandleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	BarActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	PlayheadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	UnsavedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ContentPaneStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)
