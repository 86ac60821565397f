// Package annotate turns raw tool output into line-oriented annotations and
// writes them to CI annotation channels.
//
// The annotation channel accepts one annotation per line, so multi-line text
// (a formatter diff, a stack trace) is embedded by escaping newlines to the
// percent encoding GitHub workflow commands use. The encoding is exactly
// reversible: UnescapeMessage(EscapeMessage(s)) == s for any s.
package annotate

import "strings"

// EscapeMessage encodes text for use as a single-line annotation message.
// Percent signs are encoded before the control characters so that literal
// "%0A" sequences in the input survive the round trip.
func EscapeMessage(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// UnescapeMessage is the exact inverse of EscapeMessage.
// "%25" must be decoded last: any "%0A" or "%0D" still present after the
// first two passes belongs to an escaped literal and is restored by the
// final pass.
func UnescapeMessage(s string) string {
	s = strings.ReplaceAll(s, "%0D", "\r")
	s = strings.ReplaceAll(s, "%0A", "\n")
	s = strings.ReplaceAll(s, "%25", "%")
	return s
}

// EscapeProperty encodes text for use in an annotation property value
// (for example a file path), which additionally reserves ':' and ','.
func EscapeProperty(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	s = strings.ReplaceAll(s, ":", "%3A")
	s = strings.ReplaceAll(s, ",", "%2C")
	return s
}

// UnescapeProperty is the exact inverse of EscapeProperty.
func UnescapeProperty(s string) string {
	s = strings.ReplaceAll(s, "%2C", ",")
	s = strings.ReplaceAll(s, "%3A", ":")
	s = strings.ReplaceAll(s, "%0D", "\r")
	s = strings.ReplaceAll(s, "%0A", "\n")
	s = strings.ReplaceAll(s, "%25", "%")
	return s
}
