package classifier

import "github.com/vietddude/dashclient/internal/core/domain"

const defaultUserMessage = "An unexpected error occurred"

type messageKey struct {
	t domain.ErrorType
	s domain.Severity
}

var userMessages = map[messageKey]string{
	{domain.ErrorTypeValidation, domain.SeverityLow}:      "Please review the highlighted fields.",
	{domain.ErrorTypeValidation, domain.SeverityMedium}:   "Some of the information you entered is invalid. Please check it and try again.",
	{domain.ErrorTypeValidation, domain.SeverityHigh}:     "The submitted data was rejected. Please correct it before continuing.",
	{domain.ErrorTypeValidation, domain.SeverityCritical}: "The submitted data could not be processed.",

	{domain.ErrorTypeNetwork, domain.SeverityLow}:      "The connection is slow. Retrying may help.",
	{domain.ErrorTypeNetwork, domain.SeverityMedium}:   "We could not reach the server. Please check your connection and try again.",
	{domain.ErrorTypeNetwork, domain.SeverityHigh}:     "You appear to be offline or the server is unreachable. Your request will be retried when the connection returns.",
	{domain.ErrorTypeNetwork, domain.SeverityCritical}: "The service is unreachable. Please try again later.",

	{domain.ErrorTypeAuthentication, domain.SeverityLow}:      "Please sign in to continue.",
	{domain.ErrorTypeAuthentication, domain.SeverityMedium}:   "You do not have access to this resource. Try signing in again.",
	{domain.ErrorTypeAuthentication, domain.SeverityHigh}:     "Your session has expired. Please sign in again.",
	{domain.ErrorTypeAuthentication, domain.SeverityCritical}: "Your credentials were rejected. Please sign in again.",

	{domain.ErrorTypeAuthorization, domain.SeverityLow}:      "This action is not available for your account.",
	{domain.ErrorTypeAuthorization, domain.SeverityMedium}:   "You do not have permission to perform this action.",
	{domain.ErrorTypeAuthorization, domain.SeverityHigh}:     "Access denied. Contact an administrator if you need this permission.",
	{domain.ErrorTypeAuthorization, domain.SeverityCritical}: "Access to this resource has been revoked.",

	{domain.ErrorTypeBusinessLogic, domain.SeverityLow}:      "The request could not be completed as submitted.",
	{domain.ErrorTypeBusinessLogic, domain.SeverityMedium}:   "This operation is not allowed in the current state.",
	{domain.ErrorTypeBusinessLogic, domain.SeverityHigh}:     "The operation conflicts with existing data.",
	{domain.ErrorTypeBusinessLogic, domain.SeverityCritical}: "The operation was rejected by the server.",

	{domain.ErrorTypeFileUpload, domain.SeverityLow}:      "The file could not be uploaded. Please try again.",
	{domain.ErrorTypeFileUpload, domain.SeverityMedium}:   "The file upload failed. Check the file type and size and try again.",
	{domain.ErrorTypeFileUpload, domain.SeverityHigh}:     "The file was rejected by the server.",
	{domain.ErrorTypeFileUpload, domain.SeverityCritical}: "File uploads are currently unavailable.",

	{domain.ErrorTypeSystem, domain.SeverityLow}:      "Something went wrong. Please try again.",
	{domain.ErrorTypeSystem, domain.SeverityMedium}:   "The request could not be completed. Please try again.",
	{domain.ErrorTypeSystem, domain.SeverityHigh}:     "The server encountered an error. Please try again later.",
	{domain.ErrorTypeSystem, domain.SeverityCritical}: "A critical system error occurred. Please contact support.",

	{domain.ErrorTypeUnknown, domain.SeverityLow}:      "Something unexpected happened.",
	{domain.ErrorTypeUnknown, domain.SeverityMedium}:   defaultUserMessage,
	{domain.ErrorTypeUnknown, domain.SeverityHigh}:     "An unexpected error occurred. Please reload and try again.",
	{domain.ErrorTypeUnknown, domain.SeverityCritical}: "An unexpected error occurred. Please contact support.",
}

// UserMessage returns the display message for a type and severity. Unknown
// combinations fall back to the unknown/medium message.
func UserMessage(t domain.ErrorType, s domain.Severity) string {
	if msg, ok := userMessages[messageKey{t, s}]; ok {
		return msg
	}
	return userMessages[messageKey{domain.ErrorTypeUnknown, domain.SeverityMedium}]
}
