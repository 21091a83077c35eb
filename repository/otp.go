package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopsphere/domain"

	"github.com/redis/go-redis/v9"
)

// Key layout, one namespace per concern, all scoped by email:
//
//	otp:{email}               live code
//	otp_cooldown:{email}      re-issue spacing
//	otp_request_count:{email} hourly issuance counter
//	otp_spam_lock:{email}     hourly spam lock
//	otp_attempts:{email}      failed verification counter
//	otp_lock:{email}          account lock after failed attempts
//	reset_ticket:{email}      single-use proof of OTP verification
const (
	otpKeyPrefix          = "otp:"
	cooldownKeyPrefix     = "otp_cooldown:"
	requestCountKeyPrefix = "otp_request_count:"
	spamLockKeyPrefix     = "otp_spam_lock:"
	attemptsKeyPrefix     = "otp_attempts:"
	accountLockKeyPrefix  = "otp_lock:"
	resetTicketKeyPrefix  = "reset_ticket:"
)

// Counter increments are atomic: the window expiry is attached in the same
// script the first time the key is created, so two concurrent requests can
// never both observe the pre-increment count.
const incrWithWindowScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

type otpRedisStore struct {
	client *redis.Client
}

func NewOTPRedisStore(client *redis.Client) domain.OTPStore {
	return &otpRedisStore{client: client}
}

func (r *otpRedisStore) SaveCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return r.client.Set(ctx, otpKeyPrefix+email, strings.TrimSpace(code), ttl).Err()
}

func (r *otpRedisStore) GetCode(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, otpKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // not found
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (r *otpRedisStore) DeleteCode(ctx context.Context, email string) error {
	return r.client.Del(ctx, otpKeyPrefix+email).Err()
}

func (r *otpRedisStore) SetCooldown(ctx context.Context, email string, ttl time.Duration) error {
	return r.client.Set(ctx, cooldownKeyPrefix+email, "true", ttl).Err()
}

func (r *otpRedisStore) InCooldown(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, cooldownKeyPrefix+email)
}

func (r *otpRedisStore) IncrRequestCount(ctx context.Context, email string, window time.Duration) (int64, error) {
	return r.incrWithWindow(ctx, requestCountKeyPrefix+email, window)
}

func (r *otpRedisStore) SetSpamLock(ctx context.Context, email string, ttl time.Duration) error {
	return r.client.Set(ctx, spamLockKeyPrefix+email, "locked", ttl).Err()
}

func (r *otpRedisStore) SpamLocked(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, spamLockKeyPrefix+email)
}

func (r *otpRedisStore) IncrAttempts(ctx context.Context, email string, window time.Duration) (int64, error) {
	return r.incrWithWindow(ctx, attemptsKeyPrefix+email, window)
}

func (r *otpRedisStore) DeleteAttempts(ctx context.Context, email string) error {
	return r.client.Del(ctx, attemptsKeyPrefix+email).Err()
}

func (r *otpRedisStore) SetAccountLock(ctx context.Context, email string, ttl time.Duration) error {
	return r.client.Set(ctx, accountLockKeyPrefix+email, "locked", ttl).Err()
}

func (r *otpRedisStore) AccountLocked(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, accountLockKeyPrefix+email)
}

func (r *otpRedisStore) SetResetTicket(ctx context.Context, email string, ttl time.Duration) error {
	return r.client.Set(ctx, resetTicketKeyPrefix+email, "true", ttl).Err()
}

func (r *otpRedisStore) HasResetTicket(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, resetTicketKeyPrefix+email)
}

// ConsumeResetTicket removes the ticket so it can only authorize a single
// password reset.
func (r *otpRedisStore) ConsumeResetTicket(ctx context.Context, email string) (bool, error) {
	_, err := r.client.GetDel(ctx, resetTicketKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *otpRedisStore) exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *otpRedisStore) incrWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	result, err := r.client.Eval(ctx, incrWithWindowScript, []string{key}, int(window.Seconds())).Result()
	if err != nil {
		return 0, err
	}
	count, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected reply type from counter script")
	}
	return count, nil
}
