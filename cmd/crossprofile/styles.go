package main

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

var flavor = catppuccin.Mocha

var (
	colorText     = lipgloss.Color(flavor.Text().Hex)
	colorBlue     = lipgloss.Color(flavor.Blue().Hex)
	colorGreen    = lipgloss.Color(flavor.Green().Hex)
	colorMauve    = lipgloss.Color(flavor.Mauve().Hex)
	colorYellow   = lipgloss.Color(flavor.Yellow().Hex)
	colorOverlay0 = lipgloss.Color(flavor.Overlay0().Hex)
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorMauve).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(colorText)

	tagStyle = lipgloss.NewStyle().
			Foreground(colorOverlay0).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorOverlay0)

	filterStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)
