package service

import (
	"context"
	"errors"
	"time"

	"shopsphere/domain"
	"shopsphere/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type authService struct {
	userRepo     domain.UserRepository
	otpPolicy    domain.OTPPolicy
	accessToken  *utils.JWTManager
	refreshToken *utils.JWTManager
}

func NewAuthService(userRepo domain.UserRepository, otpPolicy domain.OTPPolicy, secret string) domain.AuthUseCase {
	return &authService{
		userRepo:     userRepo,
		otpPolicy:    otpPolicy,
		accessToken:  utils.NewJWTManager(secret, 15*time.Minute),
		refreshToken: utils.NewJWTManager(secret, 7*24*time.Hour),
	}
}

// Register starts the two-phase registration: no user row is written until
// the emailed code is verified. Calling it again before verification just
// re-issues a code, subject to the same gates.
func (s *authService) Register(ctx context.Context, name, email string) error {
	if _, err := s.userRepo.GetUserByEmail(ctx, email); err == nil {
		return domain.NewValidationError("user already exists with this email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.otpPolicy.CheckRestrictions(ctx, email); err != nil {
		return err
	}
	if err := s.otpPolicy.TrackRequest(ctx, email); err != nil {
		return err
	}

	_, err := s.otpPolicy.IssueCode(ctx, email, name)
	return err
}

func (s *authService) VerifyRegistration(ctx context.Context, email, otp, password, name string) (*domain.User, error) {
	if _, err := s.userRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.NewValidationError("user already exists with this email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.otpPolicy.VerifyCode(ctx, email, otp); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		// Two verifications can race past the existence check; the unique
		// index has the final word.
		if utils.IsUniqueViolation(err) {
			return nil, domain.NewValidationError("user already exists with this email")
		}
		return nil, err
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *domain.AuthTokens, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.NewAuthError("no account found with this email")
		}
		return nil, nil, err
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, domain.NewAuthError("invalid email or password")
	}

	accessToken, err := s.accessToken.GenerateToken(user.ID, domain.RoleUser)
	if err != nil {
		return nil, nil, err
	}
	refreshToken, err := s.refreshToken.GenerateToken(user.ID, domain.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	return user, &domain.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ForgetPassword reuses the registration OTP machinery; there is no
// separate reset namespace, so reset requests share the same locks and
// counters as registration for one email.
func (s *authService) ForgetPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewValidationError("no account found with this email")
		}
		return err
	}

	if err := s.otpPolicy.CheckRestrictions(ctx, email); err != nil {
		return err
	}
	if err := s.otpPolicy.TrackRequest(ctx, email); err != nil {
		return err
	}

	_, err = s.otpPolicy.IssueCode(ctx, email, user.Name)
	return err
}

// VerifyForgetPasswordOTP confirms identity and grants a short-lived,
// single-use reset ticket; it does not itself change the password.
func (s *authService) VerifyForgetPasswordOTP(ctx context.Context, email, otp string) error {
	if err := s.otpPolicy.VerifyCode(ctx, email, otp); err != nil {
		return err
	}
	return s.otpPolicy.GrantResetTicket(ctx, email)
}

func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewValidationError("no account found with this email")
		}
		return err
	}

	// The ticket gate runs before the same-password comparison so that an
	// unverified caller never learns whether a guess matched the current
	// password, but the comparison runs before the ticket is consumed so a
	// rejected password does not force the user back through the OTP flow.
	held, err := s.otpPolicy.HasResetTicket(ctx, email)
	if err != nil {
		return err
	}
	if !held {
		return domain.NewValidationError("OTP verification is required before resetting the password")
	}

	if user.Password != "" && bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(newPassword)) == nil {
		return domain.NewValidationError("new password cannot be the same as the old password")
	}

	ok, err := s.otpPolicy.RedeemResetTicket(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewValidationError("OTP verification is required before resetting the password")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)

	return s.userRepo.UpdateUser(ctx, user)
}

// Me resolves the profile for an authenticated user id taken from a
// verified access token.
func (s *authService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) GetAccessTokenManager() *utils.JWTManager {
	return s.accessToken
}
