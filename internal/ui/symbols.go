package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
	SymbolPending = "○"
	SymbolUp      = "●"
	SymbolDown    = "◌"
	SymbolWarning = "▲"
	SymbolRx      = "↓"
	SymbolTx      = "↑"
)

// StateSymbol returns the glyph drawn next to an interface name.
func StateSymbol(state string) string {
	switch state {
	case "UP":
		return SymbolUp
	case "DOWN":
		return SymbolDown
	default:
		return SymbolPending
	}
}
