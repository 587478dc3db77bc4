package api

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/golang-jwt/jwt/v4"
	"github.com/julienschmidt/httprouter"
)

const (
	jwtSecretLength  = 32
	jwtExpiryTimeout = 60 * time.Second
)

// ObtainJWTSecret loads the hex encoded secret stored at file. When the file
// does not exist a random secret is generated and written there.
func ObtainJWTSecret(file string) ([]byte, error) {
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		enc := strings.TrimSpace(string(data))
		if !strings.HasPrefix(enc, "0x") {
			enc = "0x" + enc
		}
		secret, err := hexutil.Decode(enc)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT secret in %s: %w", file, err)
		}
		if len(secret) != jwtSecretLength {
			return nil, fmt.Errorf("invalid JWT secret in %s: have %d bytes, want %d", file, len(secret), jwtSecretLength)
		}
		return secret, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	secret := make([]byte, jwtSecretLength)
	if _, err := crand.Read(secret); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, []byte(hexutil.Encode(secret)), 0600); err != nil {
		return nil, err
	}
	log.Info("Generated JWT secret", "path", file)
	return secret, nil
}

// WithJWTSecret requires write requests to carry an HS256 token signed with
// secret whose iat claim is within a minute of the server clock.
func WithJWTSecret(secret []byte) Option {
	return func(s *Server) {
		s.jwtSecret = secret
	}
}

// authorized wraps h with the bearer token check when a secret is configured.
func (s *Server) authorized(h httprouter.Handle) httprouter.Handle {
	if len(s.jwtSecret) == 0 {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := s.checkToken(r); err != nil {
			log.Debug("Rejected unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr, "err", err)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		h(w, r, ps)
	}
}

func (s *Server) checkToken(r *http.Request) error {
	var (
		strToken string
		claims   jwt.RegisteredClaims
	)
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		strToken = strings.TrimPrefix(auth, "Bearer ")
	}
	if len(strToken) == 0 {
		return errors.New("missing token")
	}
	token, err := jwt.ParseWithClaims(strToken, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case err != nil:
		return err
	case !token.Valid:
		return errors.New("invalid token")
	case claims.IssuedAt == nil:
		return errors.New("missing issued-at")
	case time.Since(claims.IssuedAt.Time) > jwtExpiryTimeout:
		return errors.New("stale token")
	case time.Until(claims.IssuedAt.Time) > jwtExpiryTimeout:
		return errors.New("future token")
	}
	return nil
}
