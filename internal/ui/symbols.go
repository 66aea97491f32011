package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Step completed successfully
	SymbolFail     = "✗" // Step failed
	SymbolPending  = "○" // Step not yet started, or nothing to do
	SymbolProgress = "◐" // Step in progress
	SymbolSkipped  = "⊘" // Step skipped (dry run)
	SymbolWarning  = "⚠"
)
