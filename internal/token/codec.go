// Package token はステートレスなBearerトークン（HS256 JWT）の発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Lifetime は発行するトークンの有効期間。発行時刻からの固定値で、設定では変えない。
const Lifetime = 24 * time.Hour

// ErrInvalidToken は署名不正・期限切れ・形式不正のいずれかを表す。
// 呼び出し側が原因を区別できないよう単一のエラーに集約する。
var ErrInvalidToken = errors.New("invalid token")

// Claims はトークンに含めるクレーム。subとexpのみを使用する。
type Claims struct {
	jwt.RegisteredClaims
}

// Codec は署名鍵を保持し、トークンの発行と検証を行う。
// 生成後は不変で、複数goroutineから同時に利用できる。
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option はCodecの設定を変更する。
type Option func(*Codec)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec はCodecを生成する。secretが空の場合はエラーを返す。
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue はuserIDをsubjectとするトークンを発行する。
// expは発行時刻+Lifetime（秒精度）。
func (c *Codec) Issue(userID string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(c.now().Add(Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify は署名と有効期限を検証し、subjectのユーザーIDを返す。
// 失敗時は原因に関わらずErrInvalidTokenを返す。
func (c *Codec) Verify(raw string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
