// Package ui holds the terminal presentation pieces shared by the
// commands: a lipgloss [Palette] for styled output, a throttled
// single-line progress [Bar] for the artist scan, and [PromptName],
// a small bubbletea form that collects a profile name during
// enrollment.
//
// The prompt implements bubbletea/Elm's standard Init/Update/View
// pattern; everything else writes directly to the command's output
// stream so sync stays usable when piped or run from cron.
package ui
