package asg

import (
	"regexp"
	"strings"
)

// DataStage embeds control markers of the form \(<n>) in exported string
// values, prefixes real file paths with a "0file" sentinel, and appends a
// trailing sentinel digit after paths.
var (
	controlMarkerRe = regexp.MustCompile(`\\\(\d+\)`)
	filePrefixRe    = regexp.MustCompile(`^.*?0file[\\/]`)
	trailingZeroRe  = regexp.MustCompile(`(\.[A-Za-z][A-Za-z0-9]*)0+$`)
	driveLetterRe   = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

// DecodeValue decodes a DSX-encoded property value: control markers are
// stripped, escaped backslashes are collapsed, the "0file" path prefix and
// trailing path sentinel are removed, and path separators are normalized to
// forward slashes. The function is idempotent:
// DecodeValue(DecodeValue(x)) == DecodeValue(x).
func DecodeValue(raw string) string {
	s := raw

	// Control markers can nest after removal; strip to a fixed point.
	for {
		next := controlMarkerRe.ReplaceAllString(s, "")
		if next == s {
			break
		}

		s = next
	}

	if !looksLikePath(s) {
		return s
	}

	s = strings.ReplaceAll(s, `\\`, `\`)
	s = filePrefixRe.ReplaceAllString(s, "")
	s = trailingZeroRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, `\`, `/`)

	return s
}

// looksLikePath reports whether a decoded value should receive path
// normalization. Non-path strings are left untouched so that decoding stays
// idempotent and lossless.
func looksLikePath(s string) bool {
	if strings.Contains(s, "0file/") || strings.Contains(s, `0file\`) {
		return true
	}

	if driveLetterRe.MatchString(s) {
		return true
	}

	if strings.ContainsAny(s, `\/`) && strings.Contains(s, ".") {
		return true
	}

	return false
}

// StripDriveLetter removes a Windows drive prefix from a decoded path.
func StripDriveLetter(path string) string {
	return driveLetterRe.ReplaceAllString(path, "")
}
