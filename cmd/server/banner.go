package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// printBanner greets operators running in a terminal. Piped output (systemd,
// docker logs) skips it.
func printBanner(port int) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("208")).
		Render("ACQUIRE")
	sub := lipgloss.NewStyle().
		Faint(true).
		Render(fmt.Sprintf("board game server · http://localhost:%d", port))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 2).
		Render(title + "\n" + sub)
	fmt.Println(box)
}
