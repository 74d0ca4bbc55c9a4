package keyderivation

import "strings"

// NormalizeUsername implements the §4.2/§8 username normalization rule:
// the byte range is restricted to printable ASCII (0x20..0x7E), runs of
// whitespace collapse to a single space, leading/trailing whitespace is
// stripped, and letters are lowercased. The normalized form is the
// identity used for every derivation and for directory lookup, so it
// must be idempotent: normalize(normalize(u)) == normalize(u).
func NormalizeUsername(raw string) (string, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 || raw[i] > 0x7E {
			return "", ErrInvalidUsername
		}
	}

	var b strings.Builder
	b.Grow(len(raw))
	lastWasSpace := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == ' ' {
			if lastWasSpace || b.Len() == 0 {
				continue
			}
			lastWasSpace = true
			b.WriteByte(c)
			continue
		}
		lastWasSpace = false
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}

	out := strings.TrimRight(b.String(), " ")
	if out == "" {
		return "", ErrEmptyUsername
	}
	return out, nil
}
