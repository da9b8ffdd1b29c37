package parser

import "strings"

// ParseError is a fatal parse failure: the workbook cannot be read or a
// mandatory column cannot be located. No document accompanies it.
type ParseError struct {
	Message string
	// Hints suggests sheet headers close to the missing columns.
	Hints []string
}

func (e *ParseError) Error() string {
	return e.Message
}

// Detail returns the message followed by any column hints.
func (e *ParseError) Detail() string {
	if len(e.Hints) == 0 {
		return e.Message
	}
	return e.Message + " (" + strings.Join(e.Hints, "; ") + ")"
}
