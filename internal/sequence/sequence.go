// Package sequence parses numbered image URLs and computes their neighbours.
package sequence

import (
	"regexp"
	"strings"
)

// URI is a URL split around the last run of digits in its filename.
// Digits is empty when the URL carries no sequence.
type URI struct {
	Prefix string
	Digits string
	Suffix string
}

// Direction is the sign of a mutation.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

var (
	allDigits = regexp.MustCompile(`^\d+$`)
	extension = regexp.MustCompile(`^(.*)\.([^.]+)$`)
	digitRun  = regexp.MustCompile(`\d+`)
)

// Parse splits rawURL into prefix, digits and suffix.
// Query string and fragment are dropped first. A URL without a usable
// number is not an error; it comes back with empty Digits.
func Parse(rawURL string) URI {
	clean := rawURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}

	slash := strings.LastIndex(clean, "/")
	if slash < 0 {
		return URI{Suffix: clean}
	}
	base, file := clean[:slash], clean[slash+1:]

	if allDigits.MatchString(file) {
		return URI{Prefix: base + "/", Digits: file}
	}

	if m := extension.FindStringSubmatch(file); m != nil {
		name, ext := m[1], m[2]
		if runs := digitRun.FindAllStringIndex(name, -1); len(runs) > 0 {
			last := runs[len(runs)-1]
			return URI{
				Prefix: base + "/" + name[:last[0]],
				Digits: name[last[0]:last[1]],
				Suffix: name[last[1]:] + "." + ext,
			}
		}
	}

	return URI{Prefix: base + "/", Suffix: file}
}

// HasSequence reports whether the URI can be mutated.
func (u URI) HasSequence() bool {
	return u.Digits != ""
}

// String reassembles the URL.
func (u URI) String() string {
	return u.Prefix + u.Digits + u.Suffix
}

// Padded reports whether the digits carry a leading zero.
func (u URI) Padded() bool {
	return len(u.Digits) > 1 && u.Digits[0] == '0'
}

// Step returns the neighbour of u in direction d. The receiver is never
// modified; callers thread the returned value through their loops.
// ok is false when u has no sequence or a decrement would go below zero.
func Step(u URI, d Direction, forcePad bool) (next URI, ok bool) {
	if !u.HasSequence() {
		return URI{}, false
	}

	var value string
	switch d {
	case Up:
		value = increment(u.Digits)
	case Down:
		value, ok = decrement(u.Digits)
		if !ok {
			return URI{}, false
		}
	}

	if u.Padded() || forcePad {
		value = pad(value, len(u.Digits))
	}
	return URI{Prefix: u.Prefix, Digits: value, Suffix: u.Suffix}, true
}

// Mutate renders the neighbour URL of u in direction d.
func Mutate(u URI, d Direction, forcePad bool) (string, bool) {
	next, ok := Step(u, d, forcePad)
	if !ok {
		return "", false
	}
	return next.String(), true
}

// NeedsPaddedAlternative reports whether decrementing u should also try the
// zero-padded rendering. That is the case when the value is a multiple of
// ten or when the plain decrement would lose a digit of width.
func NeedsPaddedAlternative(u URI) bool {
	if !u.HasSequence() || u.Padded() {
		return false
	}
	if u.Digits[len(u.Digits)-1] == '0' {
		return true
	}
	plain, ok := decrement(u.Digits)
	return ok && len(plain) < len(u.Digits)
}

// increment adds one to a decimal string of any length.
func increment(digits string) string {
	b := []byte(trimZeros(digits))
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}
	return "1" + string(b)
}

// decrement subtracts one from a decimal string; false below zero.
func decrement(digits string) (string, bool) {
	trimmed := trimZeros(digits)
	if trimmed == "0" {
		return "", false
	}
	b := []byte(trimmed)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] > '0' {
			b[i]--
			break
		}
		b[i] = '9'
	}
	return trimZeros(string(b)), true
}

func trimZeros(digits string) string {
	s := strings.TrimLeft(digits, "0")
	if s == "" {
		return "0"
	}
	return s
}

func pad(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return strings.Repeat("0", width-len(value)) + value
}
