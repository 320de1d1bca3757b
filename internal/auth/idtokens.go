package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

// ExternalTokenClaims is what we keep from a verified third-party sign-in
// token: enough to find or create the matching local account.
type ExternalTokenClaims struct {
	Issuer  string
	Subject string
	Email   string
}

const (
	googleIssuer      = "accounts.google.com"
	googleIssuerHTTPS = "https://accounts.google.com"
	appleIssuer       = "https://appleid.apple.com"
)

func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if err := checkVerifyInputs(tokenString, expectedAud, "google client id"); err != nil {
		return nil, err
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, fmt.Errorf("validate google token: %w", err)
	}
	if payload.Issuer != googleIssuer && payload.Issuer != googleIssuerHTTPS {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)

	return &ExternalTokenClaims{
		Issuer:  payload.Issuer,
		Subject: payload.Subject,
		Email:   normalizeEmail(email),
	}, nil
}

func VerifyAppleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if err := checkVerifyInputs(tokenString, expectedAud, "apple service id"); err != nil {
		return nil, err
	}

	// The apple validator manages its own key fetch; no ctx plumbing.
	_ = ctx

	idToken, err := validator.NewClient().VerifyIdToken(expectedAud, tokenString)
	if err != nil {
		return nil, fmt.Errorf("validate apple token: %w", err)
	}
	if idToken.Iss != appleIssuer {
		return nil, fmt.Errorf("unexpected issuer: %s", idToken.Iss)
	}

	return &ExternalTokenClaims{
		Issuer:  idToken.Iss,
		Subject: idToken.Sub,
		Email:   normalizeEmail(idToken.Email),
	}, nil
}

func checkVerifyInputs(tokenString, expectedAud, audName string) error {
	if strings.TrimSpace(tokenString) == "" {
		return errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return errors.New("missing " + audName)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
