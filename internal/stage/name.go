package stage

// Name is a stage identifier. Names are compared by exact string equality
// and are never normalized.
type Name string

// IsValidName reports whether s is usable as a stage name. Valid names
// contain only lowercase ASCII letters, digits, underscores, and colons.
// The empty string satisfies the grammar and is accepted.
func IsValidName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == ':':
		default:
			return false
		}
	}
	return true
}

// IsValid reports whether the name satisfies the stage name grammar.
func (n Name) IsValid() bool {
	return IsValidName(string(n))
}
