// Package ui holds the terminal styling helpers for CLI output.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// Plain reports whether styling should be skipped entirely, for dumb
// terminals and redirected output.
func Plain() bool {
	return termenv.EnvColorProfile() == termenv.Ascii
}

// RenderAccent highlights headings and identifiers.
func RenderAccent(s string) string {
	if Plain() {
		return s
	}
	return accentStyle.Render(s)
}

// RenderPass marks success.
func RenderPass(s string) string {
	if Plain() {
		return s
	}
	return passStyle.Render(s)
}

// RenderWarn marks degraded-but-working states.
func RenderWarn(s string) string {
	if Plain() {
		return s
	}
	return warnStyle.Render(s)
}

// RenderErr marks failures.
func RenderErr(s string) string {
	if Plain() {
		return s
	}
	return errStyle.Render(s)
}

// RenderDim de-emphasizes secondary detail.
func RenderDim(s string) string {
	if Plain() {
		return s
	}
	return dimStyle.Render(s)
}
