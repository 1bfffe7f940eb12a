package plan

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeAlphabet excludes 0, O, 1 and I which are easily confused when read aloud or handwritten.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a plan code.
const CodeLength = 4

// Code is the short shareable identifier of a stored plan.
type Code string

func (c Code) String() string { return string(c) }

// NewCode draws a random code from CodeAlphabet.
func NewCode() (Code, error) {
	var buf [CodeLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	// The alphabet has 32 characters so masking keeps the distribution uniform.
	for i := range buf {
		buf[i] = CodeAlphabet[buf[i]&(byte(len(CodeAlphabet))-1)]
	}
	return Code(buf[:]), nil
}

// ParseCode normalizes user input to upper case and requires exactly CodeLength characters.
func ParseCode(s string) (Code, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != CodeLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidCode, s)
		}
	}
	return Code(s), nil
}
