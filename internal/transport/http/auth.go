package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	dErrors "asamblea/pkg/domain-errors"
)

const tokenTTL = 8 * time.Hour

// Auth issues and verifies operator tokens. A single operator credential pair
// comes from configuration; the password is stored as a bcrypt hash.
type Auth struct {
	signingKey []byte
	user       string
	passHash   []byte
	now        func() time.Time
}

func NewAuth(signingKey []byte, user string, passHash []byte) *Auth {
	return &Auth{signingKey: signingKey, user: user, passHash: passHash, now: time.Now}
}

// Login checks the credentials and mints a signed token.
func (a *Auth) Login(user, password string) (string, error) {
	if user != a.user ||
		bcrypt.CompareHashAndPassword(a.passHash, []byte(password)) != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return token, nil
}

// Verify validates a token string.
func (a *Auth) Verify(token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return nil
}

// Middleware gates operator routes on a valid bearer token.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respond(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
				Code: string(dErrors.CodeUnauthorized), Message: "missing bearer token",
			}})
			return
		}
		if err := a.Verify(token); err != nil {
			respond(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
				Code: string(dErrors.CodeUnauthorized), Message: "invalid token",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}
