package internaldefs

import (
	"github.com/mateforge/mateauth"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   mateauth.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   mateauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: mateauth.MetricLoginSuccess, Name: "mateauth_login_success_total", Help: "Successful login attempts."},
	{ID: mateauth.MetricLoginFailure, Name: "mateauth_login_failure_total", Help: "Failed login attempts."},
	{ID: mateauth.MetricLoginRateLimited, Name: "mateauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: mateauth.MetricLoginUnverified, Name: "mateauth_login_unverified_total", Help: "Login attempts rejected for an unverified email."},
	{ID: mateauth.MetricRefreshSuccess, Name: "mateauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: mateauth.MetricRefreshFailure, Name: "mateauth_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: mateauth.MetricFingerprintMismatch, Name: "mateauth_fingerprint_mismatch_total", Help: "Refresh attempts from a different client fingerprint."},
	{ID: mateauth.MetricRateLimitHit, Name: "mateauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: mateauth.MetricSessionCreated, Name: "mateauth_session_created_total", Help: "Created refresh sessions."},
	{ID: mateauth.MetricSessionRevoked, Name: "mateauth_session_revoked_total", Help: "Revoked refresh sessions."},
	{ID: mateauth.MetricLogout, Name: "mateauth_logout_total", Help: "Single-session logout operations."},
	{ID: mateauth.MetricLogoutAll, Name: "mateauth_logout_all_total", Help: "Logout-all operations."},
	{ID: mateauth.MetricRegisterSuccess, Name: "mateauth_register_success_total", Help: "Successful registrations."},
	{ID: mateauth.MetricRegisterDuplicate, Name: "mateauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: mateauth.MetricVerifySuccess, Name: "mateauth_verify_success_total", Help: "Successful email verifications."},
	{ID: mateauth.MetricVerifyFailure, Name: "mateauth_verify_failure_total", Help: "Failed email verifications."},
	{ID: mateauth.MetricPasswordRehashed, Name: "mateauth_password_rehashed_total", Help: "Password digests upgraded on login."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: mateauth.MetricAuthenticateLatency, Name: "mateauth_authenticate_latency_seconds", Help: "Access token authentication latency."},
	{ID: mateauth.MetricLoginLatency, Name: "mateauth_login_latency_seconds", Help: "Login latency."},
	{ID: mateauth.MetricRefreshLatency, Name: "mateauth_refresh_latency_seconds", Help: "Refresh rotation latency."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const (
	AuditDroppedName = "mateauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the engine's finite bucket bounds in seconds. The
// eighth bucket is +Inf.
var HistogramUpperBounds = upperBounds()

func upperBounds() []float64 {
	out := make([]float64, len(mateauth.LatencyBucketBounds))
	for i, b := range mateauth.LatencyBucketBounds {
		out[i] = b.Seconds()
	}
	return out
}

// NormalizeBuckets pads or truncates raw to the eight engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
