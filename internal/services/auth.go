package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/apierr"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/platform/sendgrid"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/requestdata"
	"github.com/ambralab/tpdb-backend/internal/types"
)

var (
	ErrInvalidCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("invalid email or password"))
	ErrInvalidLoginLink   = apierr.New(http.StatusUnauthorized, "invalid_login_link", errors.New("login link is invalid, expired or already used"))
)

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User, password string) error
	LoginUser(ctx context.Context, email, password string) (string, *types.User, error)
	RequestLoginLink(ctx context.Context, email string) error
	RedeemLoginLink(ctx context.Context, secret string) (string, *types.User, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db               *gorm.DB
	log              *logger.Logger
	userRepo         repos.UserRepo
	loginTokenRepo   repos.LoginTokenRepo
	userEventService UserEventService
	mailer           sendgrid.Client
	jwtSecretKey     string
	accessTTL        time.Duration
	loginLinkTTL     time.Duration
	appBaseURL       string
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	loginTokenRepo repos.LoginTokenRepo,
	userEventService UserEventService,
	mailer sendgrid.Client,
	jwtSecretKey string,
	accessTTL time.Duration,
	loginLinkTTL time.Duration,
	appBaseURL string,
) AuthService {
	return &authService{
		db:               db,
		log:              baseLog.With("service", "AuthService"),
		userRepo:         userRepo,
		loginTokenRepo:   loginTokenRepo,
		userEventService: userEventService,
		mailer:           mailer,
		jwtSecretKey:     jwtSecretKey,
		accessTTL:        accessTTL,
		loginLinkTTL:     loginLinkTTL,
		appBaseURL:       strings.TrimRight(appBaseURL, "/"),
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User, password string) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return apierr.New(http.StatusBadRequest, "invalid_email", errors.New("email is required"))
	}
	if len(password) < 8 {
		return apierr.New(http.StatusBadRequest, "weak_password", errors.New("password must be at least 8 characters"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hash)

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, eErr := as.userRepo.EmailExists(ctx, tx, user.Email)
		if eErr != nil {
			return fmt.Errorf("check email: %w", eErr)
		}
		if exists {
			return apierr.New(http.StatusConflict, "email_taken", errors.New("email already registered"))
		}
		user.ID = uuid.New()
		if _, cErr := as.userRepo.Create(ctx, tx, []*types.User{user}); cErr != nil {
			return fmt.Errorf("create user: %w", cErr)
		}
		return nil
	})
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, *types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return "", nil, err
	}
	if evErr := as.userEventService.Append(ctx, nil, user.ID, UserEventTypeLogin, map[string]interface{}{"method": "password"}); evErr != nil {
		as.log.Warn("Could not record login event", "user_id", user.ID, "error", evErr)
	}
	return token, user, nil
}

// RequestLoginLink emails a single-use login link. An unknown email is not
// reported to the caller.
func (as *authService) RequestLoginLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			as.log.Info("Login link requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("look up user: %w", err)
	}

	secret, err := newLoginSecret()
	if err != nil {
		return err
	}
	token := &types.LoginToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashLoginSecret(secret),
		ExpiresAt: time.Now().Add(as.loginLinkTTL),
	}
	if _, err := as.loginTokenRepo.Create(ctx, nil, []*types.LoginToken{token}); err != nil {
		return fmt.Errorf("create login token: %w", err)
	}

	link := fmt.Sprintf("%s/login/%s", as.appBaseURL, secret)
	req := sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: user.Email, Name: strings.TrimSpace(user.FirstName + " " + user.LastName)}},
		Subject: "Your login link",
		Text:    fmt.Sprintf("Use this link to sign in: %s\n\nThe link expires in %s and works once.", link, as.loginLinkTTL),
		HTML:    fmt.Sprintf(`<p>Use this link to sign in: <a href="%s">%s</a></p><p>The link expires in %s and works once.</p>`, link, link, as.loginLinkTTL),
	}
	if err := as.mailer.Send(ctx, req); err != nil {
		return fmt.Errorf("send login link: %w", err)
	}
	as.log.Info("Sent login link", "user_id", user.ID)
	return nil
}

func (as *authService) RedeemLoginLink(ctx context.Context, secret string) (string, *types.User, error) {
	token, err := as.loginTokenRepo.GetByHash(ctx, nil, HashLoginSecret(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidLoginLink
		}
		return "", nil, fmt.Errorf("look up login token: %w", err)
	}
	if time.Now().After(token.ExpiresAt) {
		return "", nil, ErrInvalidLoginLink
	}

	var user *types.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, cErr := as.loginTokenRepo.Consume(ctx, tx, token.ID)
		if cErr != nil {
			return fmt.Errorf("consume login token: %w", cErr)
		}
		if !consumed {
			return ErrInvalidLoginLink
		}
		users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{token.UserID})
		if uErr != nil {
			return fmt.Errorf("load user: %w", uErr)
		}
		if len(users) == 0 {
			return ErrInvalidLoginLink
		}
		user = users[0]
		return as.userEventService.Append(ctx, tx, user.ID, UserEventTypeLogin, map[string]interface{}{"method": "login_link"})
	})
	if err != nil {
		return "", nil, err
	}

	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return "", nil, err
	}
	return accessToken, user, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, apierr.New(http.StatusUnauthorized, "invalid_token", errors.New("invalid or expired access token"))
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, apierr.New(http.StatusUnauthorized, "invalid_token", errors.New("malformed subject claim"))
	}
	email, _ := claims["email"].(string)
	isStaff, _ := claims["is_staff"].(bool)

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Email:       email,
		IsStaff:     isStaff,
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"email":    user.Email,
		"is_staff": user.IsStaff,
		"iat":      now.Unix(),
		"exp":      now.Add(as.accessTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func newLoginSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate login secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashLoginSecret is the at-rest form of a login link secret.
func HashLoginSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
