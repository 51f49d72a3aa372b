// Package driveletter validates the drive letters handed to the volume
// resource. A letter is accepted with or without a single trailing colon
// and is always returned as one upper-case letter.
package driveletter

import (
	"strings"

	"github.com/juju/errors"
)

// Normalize strips one trailing colon from letter and checks that exactly
// one ASCII letter remains. Anything else fails with an error satisfying
// errors.NotValid.
func Normalize(letter string) (string, error) {
	trimmed := strings.TrimSuffix(letter, ":")
	if len(trimmed) != 1 || !isASCIILetter(trimmed[0]) {
		return "", errors.NotValidf("drive letter %q", letter)
	}
	return strings.ToUpper(trimmed), nil
}

// Path returns the letter in the "D:" form expected by volume queries.
func Path(letter string) string {
	return letter + ":"
}

func isASCIILetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
