package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultKeyTTL is how long fetched signing keys stay trusted.
const DefaultKeyTTL = time.Hour

// DefaultMinRefresh is the shortest gap between two JWKS fetches. Tokens
// naming an unknown kid inside that window fail without a fetch.
const DefaultMinRefresh = 30 * time.Second

const (
	maxKeys   = 64
	maxMisses = 1024
)

var errUnknownKey = errors.New("unknown signing key")

// jwk is one entry of a JSON Web Key Set. Only signing keys are used.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// KeySet resolves key IDs to public keys from a JWKS endpoint. Keys expire
// after the TTL. A miss triggers at most one fetch per minRefresh window,
// shared by concurrent callers; kids still unknown after a fetch are
// remembered as misses until the window ends.
type KeySet struct {
	url        string
	client     *http.Client
	keys       *expirable.LRU[string, crypto.PublicKey]
	misses     *expirable.LRU[string, struct{}]
	minRefresh time.Duration
	now        func() time.Time

	fetchMu   sync.Mutex
	lastFetch time.Time
}

// NewKeySet creates a KeySet. A non-positive ttl selects DefaultKeyTTL and a
// non-positive minRefresh selects DefaultMinRefresh, capped at ttl.
func NewKeySet(url string, ttl, minRefresh time.Duration, client *http.Client) *KeySet {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	if minRefresh <= 0 {
		minRefresh = DefaultMinRefresh
	}
	minRefresh = min(minRefresh, ttl)
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &KeySet{
		url:        url,
		client:     client,
		keys:       expirable.NewLRU[string, crypto.PublicKey](maxKeys, nil, ttl),
		misses:     expirable.NewLRU[string, struct{}](maxMisses, nil, minRefresh),
		minRefresh: minRefresh,
		now:        time.Now,
	}
}

// Key returns the public key for kid, fetching the set when it is not cached.
func (k *KeySet) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	if key, ok := k.keys.Get(kid); ok {
		return key, nil
	}
	if k.misses.Contains(kid) {
		return nil, fmt.Errorf("%w: %q", errUnknownKey, kid)
	}

	k.fetchMu.Lock()
	defer k.fetchMu.Unlock()

	// another caller may have refreshed while we waited
	if key, ok := k.keys.Get(kid); ok {
		return key, nil
	}
	if !k.lastFetch.IsZero() && k.now().Sub(k.lastFetch) < k.minRefresh {
		k.misses.Add(kid, struct{}{})
		return nil, fmt.Errorf("%w: %q", errUnknownKey, kid)
	}

	k.lastFetch = k.now()
	if err := k.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := k.keys.Get(kid); ok {
		return key, nil
	}
	k.misses.Add(kid, struct{}{})
	return nil, fmt.Errorf("%w: %q", errUnknownKey, kid)
}

func (k *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("jwks request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}

	for _, j := range set.Keys {
		if j.Kid == "" || (j.Use != "" && j.Use != "sig") {
			continue
		}
		key, err := j.publicKey()
		if err != nil {
			continue
		}
		k.keys.Add(j.Kid, key)
	}
	return nil
}

func (j jwk) publicKey() (crypto.PublicKey, error) {
	switch j.Kty {
	case "RSA":
		n, err := decodeBigInt(j.N)
		if err != nil {
			return nil, err
		}
		e, err := decodeBigInt(j.E)
		if err != nil {
			return nil, err
		}
		if !e.IsInt64() || e.Int64() > 1<<31-1 {
			return nil, errors.New("rsa exponent out of range")
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch j.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		default:
			return nil, fmt.Errorf("unsupported curve %q", j.Crv)
		}
		x, err := decodeBigInt(j.X)
		if err != nil {
			return nil, err
		}
		y, err := decodeBigInt(j.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", j.Kty)
	}
}

func decodeBigInt(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key component: %w", err)
	}
	return new(big.Int).SetBytes(b), nil
}
