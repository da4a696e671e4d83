package naming

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for requests that carry neither columns nor an
// explicit name, or an empty table name.
var ErrInvalidRequest = errors.New("naming: invalid request")

// NameTooLongError is returned when no shortening strategy allowed for the
// request kind produces an identifier within the length limit.
type NameTooLongError struct {
	Kind Kind
	Name string
	Max  int
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("naming: %s name %q is longer than %d characters and cannot be shortened", e.Kind, e.Name, e.Max)
}

// InvalidIdentifierCharacterError reports a character that is not legal in an
// unquoted identifier.
type InvalidIdentifierCharacterError struct {
	Name string
	Char rune
	Pos  int
}

func (e *InvalidIdentifierCharacterError) Error() string {
	if e.Name == "" {
		return "naming: empty identifier"
	}
	if e.Pos == 0 {
		return fmt.Sprintf("naming: identifier %q must start with a letter, got %q", e.Name, e.Char)
	}
	return fmt.Sprintf("naming: identifier %q contains illegal character %q at position %d", e.Name, e.Char, e.Pos)
}
