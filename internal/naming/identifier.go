package naming

// validateIdentifier accepts the unquoted identifier alphabet shared by the
// supported databases: an ASCII letter followed by letters, digits, '_', '$'
// or '#'.
func validateIdentifier(name string) error {
	if name == "" {
		return &InvalidIdentifierCharacterError{Name: name}
	}
	for i, r := range name {
		if i == 0 {
			if !isLetter(r) {
				return &InvalidIdentifierCharacterError{Name: name, Char: r, Pos: 0}
			}
			continue
		}
		if !isLetter(r) && !isDigit(r) && r != '_' && r != '$' && r != '#' {
			return &InvalidIdentifierCharacterError{Name: name, Char: r, Pos: i}
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
