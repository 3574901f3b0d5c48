package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/tourbase/internal/model"
)

// SignToken はアカウントIDを主体とするJWTを発行する。
// 署名アルゴリズムはHS256固定。
func (s *Service) SignToken(accountID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": accountID,
		"iat": now.Unix(),
		"exp": now.Add(s.config.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// verifyToken はJWTを検証し、アカウントIDと発行時刻を返す。
// 署名不正・期限切れ・アルゴリズム不一致はすべてINVALID_TOKENに丸める。
func (s *Service) verifyToken(tokenString string) (string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", time.Time{}, model.NewInvalidTokenError()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, model.NewInvalidTokenError()
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", time.Time{}, model.NewInvalidTokenError()
	}

	issuedAt, err := claims.GetIssuedAt()
	if err != nil || issuedAt == nil {
		return "", time.Time{}, model.NewInvalidTokenError()
	}

	return sub, issuedAt.Time, nil
}
