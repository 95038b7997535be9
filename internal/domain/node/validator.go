package node

import (
	"fmt"
	"unicode"
)

const (
	MinIDLen = 3
	MaxIDLen = 64
)

// ValidateID проверяет идентификатор узла
func ValidateID(id string) error {
	if len(id) < MinIDLen {
		return fmt.Errorf("node id must be at least %d characters", MinIDLen)
	}

	if len(id) > MaxIDLen {
		return fmt.Errorf("node id must be at most %d characters", MaxIDLen)
	}

	for _, r := range id {
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-') {
			return fmt.Errorf("node id can only contain latin letters, digits, '_', '-'")
		}
	}

	return nil
}
