package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sahilm/fuzzy"
	"golang.org/x/term"

	"github.com/womp-app/womp/internal/profile"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	activeStyle = cellStyle.Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle    = cellStyle.Foreground(lipgloss.Color("8"))
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// renderProfiles prints a table on terminals and tab separated lines
// (name, display name, active) otherwise.
func renderProfiles(w io.Writer, profiles []profile.Profile, active string, styled bool) {
	if !styled {
		for _, p := range profiles {
			mark := ""
			if p.Name == active {
				mark = "active"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, displayName(p), mark)
		}
		return
	}
	if len(profiles) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No profiles saved yet. Use `womp save <name>`."))
		return
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		mark := ""
		if p.Name == active {
			mark = "●"
		}
		desc := ""
		if p.Config != nil {
			desc = p.Config.Description
		}
		rows = append(rows, []string{mark, p.Name, displayName(p), desc})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("", "NAME", "DISPLAY NAME", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(profiles) && profiles[row].Name == active:
				return activeStyle
			case col == 3:
				return dimStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, t.Render())
}

func displayName(p profile.Profile) string {
	if p.Config != nil && p.Config.Name != "" {
		return p.Config.Name
	}
	return p.Name
}

// suggest returns the candidate closest to name, or "" when nothing is
// close.
func suggest(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	for _, pattern := range []string{name, profile.Sanitize(name), strings.ToLower(name)} {
		if pattern == "" {
			continue
		}
		if matches := fuzzy.Find(pattern, candidates); len(matches) > 0 {
			return matches[0].Str
		}
	}
	return ""
}
