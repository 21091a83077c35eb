// domain/auth.go
package domain

import (
	"context"

	"shopsphere/utils"
)

const RoleUser = "user"

type AuthUseCase interface {
	Register(ctx context.Context, name, email string) error
	VerifyRegistration(ctx context.Context, email, otp, password, name string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, *AuthTokens, error)
	ForgetPassword(ctx context.Context, email string) error
	VerifyForgetPasswordOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	Me(ctx context.Context, userID string) (*User, error)
	GetAccessTokenManager() *utils.JWTManager
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
