package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"shopsphere/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOTPStore is an in-memory, TTL-aware stand-in for the Redis store.
// Tests move its clock with advance instead of sleeping.
type fakeOTPStore struct {
	now     time.Time
	values  map[string]string
	expires map[string]time.Time
	counts  map[string]int64
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
		counts:  make(map[string]int64),
	}
}

func (f *fakeOTPStore) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fakeOTPStore) live(key string) bool {
	exp, ok := f.expires[key]
	if !ok {
		return false
	}
	if !f.now.Before(exp) {
		delete(f.values, key)
		delete(f.counts, key)
		delete(f.expires, key)
		return false
	}
	return true
}

func (f *fakeOTPStore) set(key, value string, ttl time.Duration) {
	f.values[key] = value
	f.expires[key] = f.now.Add(ttl)
}

func (f *fakeOTPStore) get(key string) string {
	if !f.live(key) {
		return ""
	}
	return f.values[key]
}

func (f *fakeOTPStore) del(key string) {
	delete(f.values, key)
	delete(f.counts, key)
	delete(f.expires, key)
}

func (f *fakeOTPStore) incr(key string, window time.Duration) int64 {
	if !f.live(key) {
		f.counts[key] = 0
	}
	f.counts[key]++
	if f.counts[key] == 1 {
		f.expires[key] = f.now.Add(window)
	}
	return f.counts[key]
}

func (f *fakeOTPStore) SaveCode(_ context.Context, email, code string, ttl time.Duration) error {
	f.set("otp:"+email, code, ttl)
	return nil
}

func (f *fakeOTPStore) GetCode(_ context.Context, email string) (string, error) {
	return f.get("otp:" + email), nil
}

func (f *fakeOTPStore) DeleteCode(_ context.Context, email string) error {
	f.del("otp:" + email)
	return nil
}

func (f *fakeOTPStore) SetCooldown(_ context.Context, email string, ttl time.Duration) error {
	f.set("otp_cooldown:"+email, "true", ttl)
	return nil
}

func (f *fakeOTPStore) InCooldown(_ context.Context, email string) (bool, error) {
	return f.live("otp_cooldown:" + email), nil
}

func (f *fakeOTPStore) IncrRequestCount(_ context.Context, email string, window time.Duration) (int64, error) {
	return f.incr("otp_request_count:"+email, window), nil
}

func (f *fakeOTPStore) SetSpamLock(_ context.Context, email string, ttl time.Duration) error {
	f.set("otp_spam_lock:"+email, "locked", ttl)
	return nil
}

func (f *fakeOTPStore) SpamLocked(_ context.Context, email string) (bool, error) {
	return f.live("otp_spam_lock:" + email), nil
}

func (f *fakeOTPStore) IncrAttempts(_ context.Context, email string, window time.Duration) (int64, error) {
	return f.incr("otp_attempts:"+email, window), nil
}

func (f *fakeOTPStore) DeleteAttempts(_ context.Context, email string) error {
	f.del("otp_attempts:" + email)
	return nil
}

func (f *fakeOTPStore) SetAccountLock(_ context.Context, email string, ttl time.Duration) error {
	f.set("otp_lock:"+email, "locked", ttl)
	return nil
}

func (f *fakeOTPStore) AccountLocked(_ context.Context, email string) (bool, error) {
	return f.live("otp_lock:" + email), nil
}

func (f *fakeOTPStore) SetResetTicket(_ context.Context, email string, ttl time.Duration) error {
	f.set("reset_ticket:"+email, "true", ttl)
	return nil
}

func (f *fakeOTPStore) HasResetTicket(_ context.Context, email string) (bool, error) {
	return f.live("reset_ticket:" + email), nil
}

func (f *fakeOTPStore) ConsumeResetTicket(_ context.Context, email string) (bool, error) {
	if !f.live("reset_ticket:" + email) {
		return false, nil
	}
	f.del("reset_ticket:" + email)
	return true, nil
}

type recordingMailer struct {
	to, name, code string
	sent           int
	err            error
}

func (m *recordingMailer) SendActivationEmail(to, name, code string) error {
	if m.err != nil {
		return m.err
	}
	m.to, m.name, m.code = to, name, code
	m.sent++
	return nil
}

const testEmail = "buyer@example.com"

func TestIssueCodeStoresSingleExpiringCode(t *testing.T) {
	store := newFakeOTPStore()
	mailer := &recordingMailer{}
	policy := NewOTPPolicy(store, mailer)
	ctx := context.Background()

	code, err := policy.IssueCode(ctx, testEmail, "Buyer")
	require.NoError(t, err)

	n, err := strconv.Atoi(code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1000)
	assert.LessOrEqual(t, n, 9999)

	assert.Equal(t, 1, mailer.sent)
	assert.Equal(t, testEmail, mailer.to)
	assert.Equal(t, "Buyer", mailer.name)
	assert.Equal(t, code, mailer.code)

	stored, err := store.GetCode(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, code, stored)

	store.advance(domain.OTPTTL + time.Second)
	err = policy.VerifyCode(ctx, testEmail, code)
	require.EqualError(t, err, "OTP expired or not found")
}

func TestIssueCodeStartsCooldown(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	_, err := policy.IssueCode(ctx, testEmail, "Buyer")
	require.NoError(t, err)

	err = policy.CheckRestrictions(ctx, testEmail)
	require.EqualError(t, err, "too many OTP requests, please wait 1 minute before trying again")

	store.advance(domain.OTPCooldown + time.Second)
	assert.NoError(t, policy.CheckRestrictions(ctx, testEmail))
}

func TestReissueOverwritesPriorCode(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	_, err := policy.IssueCode(ctx, testEmail, "Buyer")
	require.NoError(t, err)

	store.advance(domain.OTPCooldown + time.Second)
	second, err := policy.IssueCode(ctx, testEmail, "Buyer")
	require.NoError(t, err)

	stored, err := store.GetCode(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, second, stored)
	assert.NoError(t, policy.VerifyCode(ctx, testEmail, second))
}

func TestVerifyWrongCodeLocksAccount(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, store.SaveCode(ctx, testEmail, "1234", domain.OTPTTL))

	err := policy.VerifyCode(ctx, testEmail, "0000")
	require.EqualError(t, err, "invalid OTP, 2 attempts remaining")

	err = policy.VerifyCode(ctx, testEmail, "0000")
	require.EqualError(t, err, "invalid OTP, 1 attempts remaining")

	err = policy.VerifyCode(ctx, testEmail, "0000")
	require.EqualError(t, err, "too many failed attempts, account locked for 30 minutes")

	locked, err := store.AccountLocked(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, locked)

	// code and attempt counter are wiped by the lock
	stored, err := store.GetCode(ctx, testEmail)
	require.NoError(t, err)
	assert.Empty(t, stored)

	err = policy.CheckRestrictions(ctx, testEmail)
	require.EqualError(t, err, "account is locked due to multiple failed attempts, try again after 30 minutes")

	// lock expires on its own
	store.advance(domain.AccountLockTTL + time.Second)
	assert.NoError(t, policy.CheckRestrictions(ctx, testEmail))
}

func TestVerifySuccessIsOneShot(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, store.SaveCode(ctx, testEmail, "1234", domain.OTPTTL))

	err := policy.VerifyCode(ctx, testEmail, "9999")
	require.EqualError(t, err, "invalid OTP, 2 attempts remaining")

	require.NoError(t, policy.VerifyCode(ctx, testEmail, "1234"))

	// a repeat with the same correct code finds nothing
	err = policy.VerifyCode(ctx, testEmail, "1234")
	require.EqualError(t, err, "OTP expired or not found")
}

func TestExpiryCheckedBeforeAttempts(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, store.SaveCode(ctx, testEmail, "1234", domain.OTPTTL))
	require.EqualError(t, policy.VerifyCode(ctx, testEmail, "0000"), "invalid OTP, 2 attempts remaining")
	require.EqualError(t, policy.VerifyCode(ctx, testEmail, "0000"), "invalid OTP, 1 attempts remaining")

	// once the code has expired a further wrong guess reports expiry, it
	// must not trip the account lock
	store.advance(domain.OTPTTL + time.Second)
	err := policy.VerifyCode(ctx, testEmail, "0000")
	require.EqualError(t, err, "OTP expired or not found")

	locked, err := store.AccountLocked(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestTrackRequestAppliesSpamLock(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, policy.TrackRequest(ctx, testEmail))
	require.NoError(t, policy.TrackRequest(ctx, testEmail))

	err := policy.TrackRequest(ctx, testEmail)
	require.EqualError(t, err, "too many OTP requests, please wait 1 hour before trying again")

	err = policy.CheckRestrictions(ctx, testEmail)
	require.EqualError(t, err, "too many OTP requests, please wait 1 hour before trying again")

	store.advance(domain.SpamLockTTL + time.Second)
	assert.NoError(t, policy.CheckRestrictions(ctx, testEmail))
	assert.NoError(t, policy.TrackRequest(ctx, testEmail))
}

func TestResetTicketIsSingleUse(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, policy.GrantResetTicket(ctx, testEmail))

	ok, err := policy.RedeemResetTicket(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = policy.RedeemResetTicket(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetTicketCheckLeavesTicketIntact(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, policy.GrantResetTicket(ctx, testEmail))

	for i := 0; i < 2; i++ {
		held, err := policy.HasResetTicket(ctx, testEmail)
		require.NoError(t, err)
		assert.True(t, held)
	}

	ok, err := policy.RedeemResetTicket(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, ok)

	held, err := policy.HasResetTicket(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestResetTicketExpires(t *testing.T) {
	store := newFakeOTPStore()
	policy := NewOTPPolicy(store, &recordingMailer{})
	ctx := context.Background()

	require.NoError(t, policy.GrantResetTicket(ctx, testEmail))
	store.advance(domain.ResetTicketTTL + time.Second)

	ok, err := policy.RedeemResetTicket(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMailerFailureLeavesNoState(t *testing.T) {
	store := newFakeOTPStore()
	mailer := &recordingMailer{err: errors.New("smtp unreachable")}
	policy := NewOTPPolicy(store, mailer)
	ctx := context.Background()

	_, err := policy.IssueCode(ctx, testEmail, "Buyer")
	require.ErrorContains(t, err, "failed to send OTP email")

	stored, err := store.GetCode(ctx, testEmail)
	require.NoError(t, err)
	assert.Empty(t, stored)

	cooling, err := store.InCooldown(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, cooling)
}
