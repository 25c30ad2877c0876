// Package auth は認証（サインアップ・ログイン）とトークン発行・検証を提供する。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン検証の失敗種別。期限切れとそれ以外を区別する
// （ログ上の区別のため。外部にはどちらも401として返る）。
var (
	// ErrTokenExpired はトークンの有効期限切れを表す。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid は署名不正・形式不正など期限切れ以外の検証失敗を表す。
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims はJWTに埋め込む情報。標準クレームのsubにユーザーIDを入れる。
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService はステートレスな認証トークンの発行・検証を行う。
// トークンは永続化せず、失効機構も持たない。「ログアウト」はクライアント側で
// トークンを破棄するだけで、漏洩したトークンは自然失効まで有効なまま
// （既知の許容リスクとして運用する）。
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService はTokenServiceを生成する。
// secretはHS256署名鍵、ttlはトークン有効期間（既定30日）。
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// Issue はユーザーIDを埋め込んだ署名付きトークンを発行する。副作用はない。
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve はトークンの署名と有効期限を検証し、埋め込まれたユーザーIDを返す。
// 期限切れはErrTokenExpired、それ以外の検証失敗はErrTokenInvalidを返す。
func (s *TokenService) Resolve(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// TTL はトークンの有効期間を返す。
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
