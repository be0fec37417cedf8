package auth

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/jws"
)

const (
	// TokenPath is the JWT-bearer exchange endpoint.
	TokenPath = "/api/permission/oauth2/token"
	// GrantTypeJWTBearer is the OAuth grant used for the exchange.
	GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	// AlgorithmRS256 is the only signing algorithm Coze accepts for JWT apps.
	AlgorithmRS256 = "RS256"

	defaultJWTTTL = 15 * time.Minute
)

// Claims is the claim set signed into the client assertion.
type Claims struct {
	Issuer    string
	Audience  string
	IssuedAt  int64
	ExpiresAt int64
	ID        string
}

// Signer produces a compact JWT for claims.
type Signer interface {
	Sign(claims Claims, privateKey []byte, algorithm, keyID string) (string, error)
}

// JWSSigner signs RS256 assertions with golang.org/x/oauth2/jws.
type JWSSigner struct{}

// Sign implements Signer. privateKey is a PEM encoded PKCS#8 or PKCS#1 RSA key.
func (JWSSigner) Sign(claims Claims, privateKey []byte, algorithm, keyID string) (string, error) {
	if algorithm != AlgorithmRS256 {
		return "", fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	key, err := ParseRSAPrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	header := &jws.Header{Algorithm: algorithm, Typ: "JWT", KeyID: keyID}
	claimSet := &jws.ClaimSet{
		Iss: claims.Issuer,
		Aud: claims.Audience,
		Iat: claims.IssuedAt,
		Exp: claims.ExpiresAt,
	}
	if claims.ID != "" {
		claimSet.PrivateClaims = map[string]any{"jti": claims.ID}
	}
	return jws.Encode(header, claimSet, key)
}

// ParseRSAPrivateKey decodes a PEM block holding an RSA private key.
func ParseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("auth: private key is not PEM encoded")
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("auth: private key is not an RSA key")
		}
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	return key, nil
}

// JWTService exchanges a signed client assertion for an access token.
type JWTService struct {
	ClientID   string
	KeyID      string
	PrivateKey []byte
	// Audience defaults to the host of BaseURL.
	Audience   string
	BaseURL    string
	TTL        time.Duration
	HTTPClient *http.Client
	Signer     Signer

	now func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// GetToken implements TokenService.
func (s *JWTService) GetToken(ctx context.Context) (TokenInfo, error) {
	if s == nil {
		return TokenInfo{}, ErrNotInitialized
	}
	if strings.TrimSpace(s.ClientID) == "" || strings.TrimSpace(s.KeyID) == "" || len(s.PrivateKey) == 0 {
		return TokenInfo{}, apierr.Validation("jwt client id, key id and private key are required")
	}
	now := s.clock()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultJWTTTL
	}
	claims := Claims{
		Issuer:    s.ClientID,
		Audience:  s.audience(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		ID:        uuid.NewString(),
	}
	signer := s.Signer
	if signer == nil {
		signer = JWSSigner{}
	}
	assertion, err := signer.Sign(claims, s.PrivateKey, AlgorithmRS256, s.KeyID)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("auth: sign assertion: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"grant_type":       GrantTypeJWTBearer,
		"duration_seconds": int64(ttl / time.Second),
	})
	if err != nil {
		return TokenInfo{}, err
	}
	endpoint := strings.TrimRight(s.BaseURL, "/") + TokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return TokenInfo{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", transport.AcceptEncoding)
	req.Header.Set("Authorization", "Bearer "+assertion)

	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return TokenInfo{}, apierr.Connection(err)
	}
	body, err := transport.ReadAll(resp)
	if err != nil {
		return TokenInfo{}, apierr.Connection(err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return TokenInfo{}, apierr.Classify(resp.StatusCode, body, resp.Header)
	}

	var tr tokenResponse
	if err = json.Unmarshal(body, &tr); err != nil {
		return TokenInfo{}, apierr.JSONParse(body, err)
	}
	if tr.AccessToken == "" {
		return TokenInfo{}, apierr.Classify(resp.StatusCode, body, resp.Header)
	}
	expiresIn := tr.ExpiresIn
	// Coze reports an absolute epoch; tolerate servers that send a relative lifetime.
	if expiresIn > now.Unix() {
		expiresIn -= now.Unix()
	}
	log.Debugf("auth: exchanged jwt for access token (client %s)", s.ClientID)
	return TokenInfo{Token: tr.AccessToken, ExpiresIn: expiresIn}, nil
}

func (s *JWTService) audience() string {
	if s.Audience != "" {
		return s.Audience
	}
	if u, err := url.Parse(s.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.BaseURL
}

func (s *JWTService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
