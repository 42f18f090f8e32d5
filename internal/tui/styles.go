package tui

import "github.com/charmbracelet/lipgloss"

var (
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("240")).
			PaddingRight(1)
	sidebarFocusedStyle = sidebarStyle.BorderForeground(lipgloss.Color("39"))
	rowStyle            = lipgloss.NewStyle()
	rowCursorStyle      = lipgloss.NewStyle().Reverse(true)
	tabStyle            = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	tabSelectedStyle    = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("39")).Underline(true)
	paneTitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	titleStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)
