package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/repos"
	"github.com/asvo/qmscore-backend/internal/requestdata"
	"github.com/asvo/qmscore-backend/internal/types"
)

type JWTClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *types.User, error)
	CurrentUser(ctx context.Context) (*types.User, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, qmserr.New(qmserr.CodeValidation, "auth.login", "email and password are required")
	}

	user, err := as.userRepo.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return "", nil, qmserr.New(qmserr.CodeUnauthorized, "auth.login", "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, qmserr.New(qmserr.CodeUnauthorized, "auth.login", "invalid email or password")
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return "", nil, qmserr.Wrap(qmserr.CodeInternal, "auth.login", err)
	}
	return token, user, nil
}

func (as *authService) CurrentUser(ctx context.Context) (*types.User, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "auth.me", "authorization required")
	}
	user, err := as.userRepo.GetByID(dbctx.Context{Ctx: ctx}, actor)
	if err != nil {
		return nil, qmserr.MapError("auth.me", err)
	}
	return user, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, qmserr.Wrap(qmserr.CodeUnauthorized, "auth.token", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, qmserr.New(qmserr.CodeUnauthorized, "auth.token", "invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, qmserr.New(qmserr.CodeUnauthorized, "auth.token", "invalid user id in token")
	}

	rd := &requestdata.RequestData{
		UserID:      userID,
		Email:       claims.Email,
		TokenString: tokenString,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}
