package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// ParamViolation reports a bind parameter whose value matched a SQL injection
// pattern.
type ParamViolation struct {
	ParamName   string // Name of the parameter that failed the check
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckParam screens one bind-parameter value for SQL injection patterns
// using libinjection. Only string values are screened; numbers, booleans and
// other types cannot carry injection payloads and return nil.
//
// Returns nil when the value is clean.
func CheckParam(name string, value any) *ParamViolation {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}

	return &ParamViolation{
		ParamName:   name,
		Fingerprint: string(fingerprint),
	}
}

// CheckParams screens every bind-parameter value and returns a violation per
// dirty parameter. An empty result means all parameters are clean.
func CheckParams(params map[string]any) []ParamViolation {
	var violations []ParamViolation
	for name, value := range params {
		if v := CheckParam(name, value); v != nil {
			violations = append(violations, *v)
		}
	}
	return violations
}
