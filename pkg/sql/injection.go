package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on free text.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Source      string // Where the text came from, e.g. "question"
	Value       string // The text that was checked
}

// CheckForInjection uses libinjection to detect SQL injection patterns in
// user-supplied text such as a natural-language question.
//
// Questions are never spliced into SQL, so a hit is an audit signal rather than
// a reason to refuse the request. Returns nil if nothing is detected.
//
// Example:
//
//	result := CheckForInjection("question", "'; DROP TABLE users--")
//	// result.IsSQLi == true
//	// result.Fingerprint == "s&1c" (or similar)
func CheckForInjection(source, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Source:      source,
		Value:       value,
	}
}
