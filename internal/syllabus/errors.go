package syllabus

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedFilename is returned when a file name does not follow the syllabus pattern.
	ErrUnrecognizedFilename = errors.New("unrecognized syllabus filename")
	// ErrStructure marks a table that does not follow the unit row grammar.
	ErrStructure = errors.New("structural parse failure")
	// ErrUnknownSection is returned when a caller asks for a section outside the vocabulary.
	ErrUnknownSection = errors.New("unknown section")
)

// StructureError describes where the unit table stopped following the expected grammar.
type StructureError struct {
	Unit     int     // unit number in progress, 0 if none was parsed yet
	Expected RowKind // row kind the automaton was waiting for
	Row      int     // index of the offending row in the raw table, -1 at end of table
	Reason   string
}

func (e *StructureError) Error() string {
	where := fmt.Sprintf("row %d", e.Row)
	if e.Row < 0 {
		where = "end of table"
	}
	if e.Unit > 0 {
		return fmt.Sprintf("unit %d: expected %s at %s: %s", e.Unit, e.Expected, where, e.Reason)
	}
	return fmt.Sprintf("expected %s at %s: %s", e.Expected, where, e.Reason)
}

// Unwrap lets errors.Is match ErrStructure.
func (e *StructureError) Unwrap() error {
	return ErrStructure
}

// Warning is a recoverable data-quality signal raised while parsing a document.
// Callers log warnings with the document name attached.
type Warning struct {
	Code    string `json:"code"`              // stable identifier, e.g. "field_unparseable"
	Field   string `json:"field"`
	Value   string `json:"value"`             // raw offending value
	Subject string `json:"subject,omitempty"` // assessment or unit the warning refers to, if any
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Subject != "" {
		return fmt.Sprintf("%s: %s (%s=%q)", w.Subject, w.Message, w.Field, w.Value)
	}
	return fmt.Sprintf("%s (%s=%q)", w.Message, w.Field, w.Value)
}

// Warning codes.
const (
	WarnFieldUnparseable  = "field_unparseable"
	WarnIdentityMismatch  = "identity_mismatch"
	WarnAssessmentDropped = "assessment_dropped"
	WarnWeightDefaulted   = "weight_defaulted"
	WarnWeightSum         = "weight_sum"
	WarnUnitExtraWeekRow  = "unit_extra_week_row"
	WarnUnitRowsDiscarded = "unit_rows_discarded"
)
