package main

import "github.com/charmbracelet/lipgloss"

// Lipgloss styles used across the report.
var (
	chartStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1)

	qasmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#bb9af7")).
			Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9ece6a"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	// chart series: skyblue epsilon, tomato mu
	epsilonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87ceeb"))

	meanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff6347"))

	bandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8c3a2c"))

	neffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true)
)
