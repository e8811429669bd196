package manager

import "strings"

// Error codes reported in IdentityResult.
const (
	CodeDuplicateUserName = "DuplicateUserName"
	CodeInvalidUserName   = "InvalidUserName"
	CodePasswordTooShort  = "PasswordTooShort"
	CodePasswordNoUpper   = "PasswordRequiresUpper"
	CodePasswordNoLower   = "PasswordRequiresLower"
	CodePasswordNoDigit   = "PasswordRequiresDigit"
	CodeInvalidRoleName   = "InvalidRoleName"
	CodeUserNotInRole     = "UserNotInRole"
	CodeIdentityNotFound  = "IdentityNotFound"
)

// IdentityError is one business-rule failure of an identity store operation.
type IdentityError struct {
	Code        string
	Description string
}

// IdentityResult is the outcome of an identity store mutation. Infrastructure
// failures are returned as a separate error, never folded into Errors.
type IdentityResult struct {
	Succeeded bool
	Errors    []IdentityError
}

// Success is the result of an operation that succeeded.
var Success = IdentityResult{Succeeded: true}

// Failed returns a failed result carrying errs.
func Failed(errs ...IdentityError) IdentityResult {
	return IdentityResult{Errors: errs}
}

// Merge combines results: the combination succeeds only when every part succeeded,
// and carries every part's errors.
func Merge(results ...IdentityResult) IdentityResult {
	out := IdentityResult{Succeeded: true}
	for _, r := range results {
		if !r.Succeeded {
			out.Succeeded = false
		}
		out.Errors = append(out.Errors, r.Errors...)
	}
	return out
}

func (r IdentityResult) String() string {
	if r.Succeeded {
		return "Succeeded"
	}
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return "Failed: " + strings.Join(codes, ",")
}
