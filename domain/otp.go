// domain/otp.go
package domain

import (
	"context"
	"time"
)

// TTLs and thresholds governing the OTP flow. All state lives in the
// key-value store and expires on its own; nothing here is persisted.
const (
	OTPTTL         = 5 * time.Minute
	OTPCooldown    = time.Minute
	RequestWindow  = time.Hour
	MaxOTPRequests = 2
	AttemptWindow  = 5 * time.Minute
	MaxOTPAttempts = 3
	SpamLockTTL    = time.Hour
	AccountLockTTL = 30 * time.Minute
	ResetTicketTTL = 10 * time.Minute
)

// OTPStore is the key-value backing for the OTP policy. Every key is
// namespaced under a single email, so there is no cross-email contention.
// Counter increments must be atomic (increment and window-expiry in one
// round trip), otherwise concurrent requests under-count.
type OTPStore interface {
	SaveCode(ctx context.Context, email, code string, ttl time.Duration) error
	GetCode(ctx context.Context, email string) (string, error) // "" when absent or expired
	DeleteCode(ctx context.Context, email string) error

	SetCooldown(ctx context.Context, email string, ttl time.Duration) error
	InCooldown(ctx context.Context, email string) (bool, error)

	IncrRequestCount(ctx context.Context, email string, window time.Duration) (int64, error)
	SetSpamLock(ctx context.Context, email string, ttl time.Duration) error
	SpamLocked(ctx context.Context, email string) (bool, error)

	IncrAttempts(ctx context.Context, email string, window time.Duration) (int64, error)
	DeleteAttempts(ctx context.Context, email string) error
	SetAccountLock(ctx context.Context, email string, ttl time.Duration) error
	AccountLocked(ctx context.Context, email string) (bool, error)

	SetResetTicket(ctx context.Context, email string, ttl time.Duration) error
	HasResetTicket(ctx context.Context, email string) (bool, error)
	ConsumeResetTicket(ctx context.Context, email string) (bool, error)
}

// OTPPolicy gates one-time-code issuance and verification per email,
// independent of what the code is used for.
type OTPPolicy interface {
	// CheckRestrictions fails when the email is account-locked, spam-locked
	// or still in cooldown. It has no side effects.
	CheckRestrictions(ctx context.Context, email string) error
	// TrackRequest records an issuance request and applies the spam lock
	// once the hourly threshold is crossed.
	TrackRequest(ctx context.Context, email string) error
	// IssueCode generates a code, emails it and stores it with its cooldown.
	// The code is returned for the benefit of tests; production callers
	// discard it.
	IssueCode(ctx context.Context, email, name string) (string, error)
	VerifyCode(ctx context.Context, email, code string) error

	GrantResetTicket(ctx context.Context, email string) error
	HasResetTicket(ctx context.Context, email string) (bool, error)
	RedeemResetTicket(ctx context.Context, email string) (bool, error)
}
