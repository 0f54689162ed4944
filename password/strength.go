package password

const strongSymbols = "!@#$%^&*()-_=+[]{};:,.<>?/|~"

// IsStrong reports whether candidate satisfies the default strength
// policy: at least 8 characters with at least one uppercase letter,
// one lowercase letter, one digit and one symbol.
func IsStrong(candidate string) bool {
	if len(candidate) < 8 {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range candidate {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			for _, s := range strongSymbols {
				if r == s {
					symbol = true
					break
				}
			}
		}
	}

	return upper && lower && digit && symbol
}
