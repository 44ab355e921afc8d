package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Finance constants
const (
	// DefaultPlatformFeeRate is applied to courses created without an explicit fee
	DefaultPlatformFeeRate = "0.135"

	// AllocationSumTolerance is the allowed absolute deviation of a template's allocation sum from 1
	AllocationSumTolerance = "0.01"

	// DefaultKpiSeriesLimit is the number of months returned by the KPI series when no limit is given
	DefaultKpiSeriesLimit = 12

	// MaxKpiSeriesLimit caps the KPI series window
	MaxKpiSeriesLimit = 120

	// SellerLockPrefix namespaces per-seller distributed locks
	SellerLockPrefix = "lock:seller"

	// KpiRefreshLockKey guards the background KPI refresh so one instance runs it at a time
	KpiRefreshLockKey = "lock:kpi-refresh"

	// RevokedTokenPrefix namespaces revoked token ids in redis
	RevokedTokenPrefix = "revoked:jti"
)

type contextKey string

// Request-scoped context keys
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
)
