package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assignment-specific ───────────────────────────────────────────
	ErrAssignmentNotAvailable ErrCode = "ASSIGNMENT_NOT_AVAILABLE"
	ErrAssignmentNotDraft     ErrCode = "ASSIGNMENT_NOT_DRAFT"
	ErrNoQuestions            ErrCode = "NO_QUESTIONS"
	ErrPointsMismatch         ErrCode = "POINTS_MISMATCH"
	ErrAttemptsExhausted      ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrAttemptNotActive       ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrConfirmationRequired   ErrCode = "CONFIRMATION_REQUIRED"
	ErrNotCourseOwner         ErrCode = "NOT_COURSE_OWNER"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrSessionActive:
		return "You are already signed in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Assignment-specific ───────────────────────────────────────────
	case ErrAssignmentNotAvailable:
		return "This assignment is not currently available."
	case ErrAssignmentNotDraft:
		return "Only draft assignments can be modified."
	case ErrNoQuestions:
		return "This assignment has no questions."
	case ErrPointsMismatch:
		return "Question points do not add up to the assignment total."
	case ErrAttemptsExhausted:
		return "You have used all allowed attempts for this assignment."
	case ErrAttemptNotActive:
		return "There is no active attempt for this assignment."
	case ErrConfirmationRequired:
		return "Submission must be confirmed; it cannot be undone."
	case ErrNotCourseOwner:
		return "You are not the owner of this course."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
