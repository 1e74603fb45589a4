package goSession

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport may return an error when input validation, dependency calls, or security checks fail.
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:        e.config.Security.ProductionMode,
		SigningAlgorithm:      e.config.Token.SigningMethod,
		AccessTTL:             e.config.Token.AccessTTL,
		RefreshTTL:            e.config.Token.RefreshTTL,
		SingleUseEnforced:     e.config.Security.EnforceSingleUse,
		ReuseDetectionEnabled: e.config.Security.EnforceReuseDetection,
		SessionCapsActive:     e.config.Sessions.MaxActivePerUser > 0,
		RotateThrottleActive:  e.config.Throttle.EnableRotateThrottle && e.rateLimiter != nil,
		BlockStatusActive:     e.config.Security.EnableBlockStatusChecks && e.blockStatus != nil,
		ClaimsCacheActive:     e.claimsCache != nil,
		AuditActive:           e.config.Audit.Enabled && e.audit != nil,
	}
}
