package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const banner = `
             _                            _
   __ _  __| | ___ ___  _ __  ___  ___ | | ___
  / _` + "`" + ` |/ _` + "`" + ` |/ __/ _ \| '_ \/ __|/ _ \| |/ _ \
 | (_| | (_| | (_| (_) | | | \__ \ (_) | |  __/
  \__,_|\__,_|\___\___/|_| |_|___/\___/|_|\___|
`

var (
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	taglineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func printBanner(w io.Writer) {
	fmt.Fprintln(w, bannerStyle.Render(banner))
	fmt.Fprintln(w, taglineStyle.Render("  DSP Admin Console - Version "+Version))
	fmt.Fprintln(w)
}
