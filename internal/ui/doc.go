// Package ui provides terminal output and prompts for keyprov.
//
// Styling uses Lip Gloss. Colors are hex values that lipgloss downsamples
// for the terminal; DisableColors() switches to the plain ASCII profile
// for --no-color, NO_COLOR and output that isn't a terminal.
//
// # Components
//
//	Spinner       - Animated status indicator for connect/install/verify
//	PhaseDisplay  - One status line per step, plus indented details
//	Confirm       - Yes/no prompt (huh) for key generation
//	PromptPassword- Hidden password entry (x/term)
//	PickHost      - Bubble Tea list of ~/.ssh/config hosts
//
// # Symbols
//
//	SymbolSuccess  (checkmark)  - Step completed
//	SymbolFail     (X)          - Step failed
//	SymbolPending  (circle)     - Nothing to do
//	SymbolSkipped  (slashed)    - Dry run
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Connecting to box")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail() or s.Skip()
package ui
