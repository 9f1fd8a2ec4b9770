package rowmap

import "fmt"

// MappingError reports a stored row that cannot be turned into a domain value.
type MappingError struct {
	Table  string
	Column string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("rowmap: %s.%s: %s", e.Table, e.Column, e.Reason)
}

func mappingErr(table, column, format string, args ...any) *MappingError {
	return &MappingError{Table: table, Column: column, Reason: fmt.Sprintf(format, args...)}
}
