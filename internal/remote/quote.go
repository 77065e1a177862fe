package remote

import "strings"

// ShellQuote quotes s for a POSIX shell. Strings made only of safe
// characters pass through; anything else is single-quoted with embedded
// quotes written as '\''.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuotePath quotes a remote path but keeps a leading "~/" unquoted so the
// remote shell still expands it.
func QuotePath(p string) string {
	if p == "~" {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		return "~/" + ShellQuote(p[2:])
	}
	return ShellQuote(p)
}
