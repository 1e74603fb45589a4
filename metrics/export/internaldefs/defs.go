package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef defines a public type used by goSession APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goSession APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session engine.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricIssueSuccess, Name: "gosession_issue_success_total", Help: "Successful session issues."},
	{ID: goSession.MetricIssueFailure, Name: "gosession_issue_failure_total", Help: "Failed session issues."},
	{ID: goSession.MetricRotateSuccess, Name: "gosession_rotate_success_total", Help: "Successful refresh token rotations."},
	{ID: goSession.MetricRotateFailure, Name: "gosession_rotate_failure_total", Help: "Failed refresh token rotations."},
	{ID: goSession.MetricReuseDetected, Name: "gosession_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: goSession.MetricFamilyRevoked, Name: "gosession_family_revoked_total", Help: "Cascading family revocations."},
	{ID: goSession.MetricSessionLimitEnforced, Name: "gosession_session_limit_enforced_total", Help: "Session issues that evicted older sessions."},
	{ID: goSession.MetricRotateRateLimited, Name: "gosession_rotate_rate_limited_total", Help: "Rate-limited rotation attempts."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Successful access token validations."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Failed access token validations."},
	{ID: goSession.MetricTokenExpired, Name: "gosession_token_expired_total", Help: "Operations rejected on expired tokens."},
	{ID: goSession.MetricRevoke, Name: "gosession_revoke_total", Help: "Single-token revocations."},
	{ID: goSession.MetricRevokeAll, Name: "gosession_revoke_all_total", Help: "Revoke-all operations."},
	{ID: goSession.MetricClaimsCacheHit, Name: "gosession_claims_cache_hit_total", Help: "Claims cache hits."},
	{ID: goSession.MetricClaimsCacheMiss, Name: "gosession_claims_cache_miss_total", Help: "Claims cache misses."},
	{ID: goSession.MetricBlockStatusCacheHit, Name: "gosession_block_status_cache_hit_total", Help: "Block-status cache hits."},
	{ID: goSession.MetricBlockStatusCacheMiss, Name: "gosession_block_status_cache_miss_total", Help: "Block-status cache misses."},
	{ID: goSession.MetricBlockStatusDegraded, Name: "gosession_block_status_degraded_total", Help: "Block-status checks that failed open."},
	{ID: goSession.MetricStoreRetry, Name: "gosession_store_retry_total", Help: "Store reads that hit the retry path."},
	{ID: goSession.MetricDeviceIPMismatch, Name: "gosession_device_ip_mismatch_total", Help: "Detected device IP mismatches."},
	{ID: goSession.MetricDeviceUAMismatch, Name: "gosession_device_ua_mismatch_total", Help: "Detected device user-agent mismatches."},
	{ID: goSession.MetricSigningKeyRefresh, Name: "gosession_signing_key_refresh_total", Help: "Signing material refreshes."},
}

// HistogramDefs is an exported constant or variable used by the session engine.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "ValidateAccess latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
