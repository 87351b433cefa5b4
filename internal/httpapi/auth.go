package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"coffeeshop/backend/internal/domain"
	"coffeeshop/backend/internal/session"
	"coffeeshop/backend/internal/store"
)

const (
	defaultAdminUsername   = "admin"
	defaultAdminPassword   = "admin123"
	cashierUsername        = "kasir"
	defaultCashierPassword = "kasir123"
)

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	profiles store.Profile
	sessions *session.Manager
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, profiles store.Profile, sessions *session.Manager) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		profiles: profiles,
		sessions: sessions,
	}
}

// Login checks the credentials against the store profile. The profile's own
// username logs in as admin, the fixed "kasir" username logs in against the
// cashier password. Before the profile is first saved the factory defaults
// apply.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	adminUsername := defaultAdminUsername
	adminPassword := defaultAdminPassword
	cashierPassword := defaultCashierPassword

	profile, err := a.profiles.GetProfile(ctx)
	switch {
	case err == nil:
		adminUsername = profile.Username
		adminPassword = profile.Password
		if profile.CashierPassword != "" {
			cashierPassword = profile.CashierPassword
		}
	case errors.Is(err, store.ErrNotFound):
		// First run, factory defaults.
	default:
		return domain.LoginResponse{}, err
	}

	var role string
	switch {
	case username == adminUsername && a.verifyAndUpgrade(ctx, profile, adminPassword, req.Password, false):
		role = domain.RoleAdmin
	case username == cashierUsername && a.verifyAndUpgrade(ctx, profile, cashierPassword, req.Password, true):
		role = domain.RoleCashier
	default:
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	sess := a.sessions.Create(username, role)
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, role, sess.ID, expiresAt)
	if err != nil {
		a.sessions.End(sess.ID)
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) Logout(actor domain.Actor) {
	if actor.SessionID != "" {
		a.sessions.End(actor.SessionID)
	}
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{SessionID: claims.SessionID, Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role, sessionID string, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "coffeeshop",
		},
		Role:      role,
		SessionID: sessionID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// verifyAndUpgrade accepts either a bcrypt hash or a legacy plain-text
// password. A successful plain-text match rewrites the profile with the
// hashed form.
func (a *AuthManager) verifyAndUpgrade(ctx context.Context, profile *domain.StoreProfile, stored string, input string, cashier bool) bool {
	if stored == "" || strings.TrimSpace(input) == "" {
		return false
	}

	if isPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(input)) != 1 {
		return false
	}

	if profile != nil {
		hashed, err := hashPassword(input)
		if err == nil {
			upgraded := *profile
			if cashier {
				upgraded.CashierPassword = hashed
			} else {
				upgraded.Password = hashed
			}
			if err := a.profiles.PutProfile(ctx, upgraded); err != nil {
				log.Printf("[httpapi] WARN: password hash upgrade failed: %v", err)
			} else {
				*profile = upgraded
			}
		}
	}
	return true
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
