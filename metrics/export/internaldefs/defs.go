package internaldefs

import (
	authgate "github.com/authgate-io/authgate"
)

// CounterDef binds an engine counter to its exported name and help text.
//
// CounterDef instances are intended to be configured during initialization
// and then treated as immutable.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in render order.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricSignupSuccess, Name: "authgate_signup_success_total", Help: "Successful signups."},
	{ID: authgate.MetricSignupDuplicate, Name: "authgate_signup_duplicate_total", Help: "Signup attempts rejected as duplicate."},
	{ID: authgate.MetricOTPSent, Name: "authgate_otp_sent_total", Help: "Issued one-time codes."},
	{ID: authgate.MetricOTPVerified, Name: "authgate_otp_verified_total", Help: "Successful one-time code verifications."},
	{ID: authgate.MetricOTPFailure, Name: "authgate_otp_failure_total", Help: "Failed one-time code verifications."},
	{ID: authgate.MetricOTPAttemptsExceeded, Name: "authgate_otp_attempts_exceeded_total", Help: "One-time codes refused after the attempt cap."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Created sessions."},
	{ID: authgate.MetricSessionRevoked, Name: "authgate_session_revoked_total", Help: "Revoked sessions."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Single-session logout operations."},
	{ID: authgate.MetricGlobalRevoke, Name: "authgate_global_revoke_total", Help: "Global session revoke operations."},
	{ID: authgate.MetricRateLimitHit, Name: "authgate_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authgate.MetricResetRequest, Name: "authgate_password_reset_request_total", Help: "Password reset requests."},
	{ID: authgate.MetricResetSuccess, Name: "authgate_password_reset_success_total", Help: "Successful password reset confirmations."},
	{ID: authgate.MetricResetFailure, Name: "authgate_password_reset_failure_total", Help: "Failed password reset confirmations."},
	{ID: authgate.MetricEmailVerified, Name: "authgate_email_verified_total", Help: "Successful email verifications."},
	{ID: authgate.MetricEmailVerificationFailure, Name: "authgate_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: authgate.MetricEmailChangeRequested, Name: "authgate_email_change_requested_total", Help: "Requested email changes."},
	{ID: authgate.MetricEmailChangeCompleted, Name: "authgate_email_change_completed_total", Help: "Completed email changes."},
	{ID: authgate.MetricDeliverySuccess, Name: "authgate_delivery_success_total", Help: "Messages delivered on the first channel."},
	{ID: authgate.MetricDeliveryFallback, Name: "authgate_delivery_fallback_total", Help: "Messages delivered on a fallback channel."},
	{ID: authgate.MetricDeliveryFailure, Name: "authgate_delivery_failure_total", Help: "Messages every channel failed to deliver."},
	{ID: authgate.MetricPermissionDenied, Name: "authgate_permission_denied_total", Help: "Authorization checks that denied requests."},
	{ID: authgate.MetricAuditExport, Name: "authgate_audit_export_total", Help: "Audit log export operations."},
	{ID: authgate.MetricSystemError, Name: "authgate_system_error_total", Help: "Recorded system errors."},
}
