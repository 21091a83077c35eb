package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"shopsphere/domain"
	"shopsphere/utils"
)

type otpPolicy struct {
	store  domain.OTPStore
	mailer utils.Mailer
}

func NewOTPPolicy(store domain.OTPStore, mailer utils.Mailer) domain.OTPPolicy {
	return &otpPolicy{
		store:  store,
		mailer: mailer,
	}
}

// CheckRestrictions answers "is this email currently blocked". Lock checks
// run strictest first: the account lock outlives and overrides everything,
// the cooldown is the cheapest to wait out.
func (p *otpPolicy) CheckRestrictions(ctx context.Context, email string) error {
	locked, err := p.store.AccountLocked(ctx, email)
	if err != nil {
		return err
	}
	if locked {
		return domain.NewValidationError("account is locked due to multiple failed attempts, try again after 30 minutes")
	}

	spamLocked, err := p.store.SpamLocked(ctx, email)
	if err != nil {
		return err
	}
	if spamLocked {
		return domain.NewRateLimitError("too many OTP requests, please wait 1 hour before trying again")
	}

	cooling, err := p.store.InCooldown(ctx, email)
	if err != nil {
		return err
	}
	if cooling {
		return domain.NewRateLimitError("too many OTP requests, please wait 1 minute before trying again")
	}

	return nil
}

// TrackRequest records this request and decides whether the threshold is
// now crossed. The increment is atomic in the store, so two concurrent
// requests for the same email cannot both slip under the limit.
func (p *otpPolicy) TrackRequest(ctx context.Context, email string) error {
	count, err := p.store.IncrRequestCount(ctx, email, domain.RequestWindow)
	if err != nil {
		return err
	}

	if count > domain.MaxOTPRequests {
		if err := p.store.SetSpamLock(ctx, email, domain.SpamLockTTL); err != nil {
			return err
		}
		return domain.NewRateLimitError("too many OTP requests, please wait 1 hour before trying again")
	}

	return nil
}

func (p *otpPolicy) IssueCode(ctx context.Context, email, name string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	// A send failure propagates: an OTP the user never received must not
	// start its cooldown.
	if err := p.mailer.SendActivationEmail(email, name, code); err != nil {
		return "", fmt.Errorf("failed to send OTP email: %w", err)
	}

	if err := p.store.SaveCode(ctx, email, code, domain.OTPTTL); err != nil {
		return "", err
	}
	if err := p.store.SetCooldown(ctx, email, domain.OTPCooldown); err != nil {
		return "", err
	}

	return code, nil
}

func (p *otpPolicy) VerifyCode(ctx context.Context, email, submitted string) error {
	stored, err := p.store.GetCode(ctx, email)
	if err != nil {
		return err
	}
	// The expiry check must precede any attempt accounting.
	if stored == "" {
		return domain.NewValidationError("OTP expired or not found")
	}

	if stored == submitted {
		if err := p.store.DeleteCode(ctx, email); err != nil {
			return err
		}
		return p.store.DeleteAttempts(ctx, email)
	}

	attempts, err := p.store.IncrAttempts(ctx, email, domain.AttemptWindow)
	if err != nil {
		return err
	}

	if attempts >= domain.MaxOTPAttempts {
		if err := p.store.SetAccountLock(ctx, email, domain.AccountLockTTL); err != nil {
			return err
		}
		if err := p.store.DeleteCode(ctx, email); err != nil {
			return err
		}
		if err := p.store.DeleteAttempts(ctx, email); err != nil {
			return err
		}
		return domain.NewValidationError("too many failed attempts, account locked for 30 minutes")
	}

	return domain.NewValidationError(fmt.Sprintf("invalid OTP, %d attempts remaining", domain.MaxOTPAttempts-attempts))
}

func (p *otpPolicy) GrantResetTicket(ctx context.Context, email string) error {
	return p.store.SetResetTicket(ctx, email, domain.ResetTicketTTL)
}

func (p *otpPolicy) HasResetTicket(ctx context.Context, email string) (bool, error) {
	return p.store.HasResetTicket(ctx, email)
}

func (p *otpPolicy) RedeemResetTicket(ctx context.Context, email string) (bool, error) {
	return p.store.ConsumeResetTicket(ctx, email)
}

// generateCode returns a uniformly random 4-digit code in [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000, 10), nil
}
