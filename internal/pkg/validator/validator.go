package validator

import (
	"regexp"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Employee ids are stored in canonical uppercase form: 3-50 chars of
// letters, digits and dashes, e.g. "EMP001".
var employeeIDRegex = regexp.MustCompile(`^[A-Z0-9-]{3,50}$`)

// CanonicalEmployeeID trims and uppercases an employee id so "emp001" and
// "EMP001" address the same records.
func CanonicalEmployeeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func IsValidEmployeeID(id string) bool {
	return employeeIDRegex.MatchString(id)
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}

// IsValidTimezone reports whether the name resolves to an IANA zone.
// Callers that file records by local date fall back to UTC instead of
// rejecting the request.
func IsValidTimezone(tzName string) bool {
	if tzName == "" {
		return false
	}
	_, err := time.LoadLocation(tzName)
	return err == nil
}
