// Package devicetoken answers challenges with a short lived JWT that
// identifies this device.
package devicetoken

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TecharoHQ/maat"
	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/realm"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is how long a token is valid when the configuration does not say.
const DefaultTTL = 5 * time.Minute

var (
	ErrNoDeviceID      = errors.New("devicetoken: device_id is required")
	ErrBothKeys        = errors.New("devicetoken: do not specify both hs512_secret and ed25519_private_key_hex")
	ErrBadKey          = errors.New("devicetoken: ed25519_private_key_hex is invalid")
	ErrBadTTL          = errors.New("devicetoken: ttl is invalid")
	ErrCantSign        = errors.New("devicetoken: can't sign token")
	ErrCantEncodeToken = errors.New("devicetoken: can't encode answer")
)

func init() {
	listener.Register("devicetoken", Factory{})
}

type Config struct {
	DeviceID             string `json:"device_id"`
	Issuer               string `json:"issuer,omitempty"`
	TTL                  string `json:"ttl,omitempty"`
	HS512Secret          string `json:"hs512_secret,omitempty"`
	ED25519PrivateKeyHex string `json:"ed25519_private_key_hex,omitempty"`
}

func (c Config) Valid() error {
	var errs []error

	if c.DeviceID == "" {
		errs = append(errs, ErrNoDeviceID)
	}

	if c.HS512Secret != "" && c.ED25519PrivateKeyHex != "" {
		errs = append(errs, ErrBothKeys)
	}

	if c.ED25519PrivateKeyHex != "" {
		if _, err := keyFromHex(c.ED25519PrivateKeyHex); err != nil {
			errs = append(errs, err)
		}
	}

	if c.TTL != "" {
		if d, err := time.ParseDuration(c.TTL); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrBadTTL, c.TTL))
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

func keyFromHex(value string) (ed25519.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadKey, err)
	}

	if len(keyBytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: key is not %d bytes long, got %d bytes", ErrBadKey, ed25519.SeedSize, len(keyBytes))
	}

	return ed25519.NewKeyFromSeed(keyBytes), nil
}

type Factory struct{}

func (Factory) Valid(params json.RawMessage) error {
	_, err := parse(params)
	return err
}

func parse(params json.RawMessage) (Config, error) {
	cfg, err := listener.DecodeParameters[Config](params)
	if err != nil {
		return cfg, err
	}

	if err := cfg.Valid(); err != nil {
		return cfg, fmt.Errorf("%w: %w", listener.ErrBadParameters, err)
	}

	return cfg, nil
}

func (Factory) Build(_ context.Context, in *listener.BuildInput) (realm.Listener, error) {
	cfg, err := parse(in.Parameters)
	if err != nil {
		return nil, err
	}

	result := &Impl{
		realm:    in.Realm,
		deviceID: cfg.DeviceID,
		issuer:   cfg.Issuer,
		ttl:      DefaultTTL,
		lg:       in.Log(),
	}

	if result.issuer == "" {
		result.issuer = "maat/" + maat.Version
	}

	if cfg.TTL != "" {
		result.ttl, _ = time.ParseDuration(cfg.TTL)
	}

	switch {
	case cfg.HS512Secret != "":
		result.hs512Secret = []byte(cfg.HS512Secret)
	case cfg.ED25519PrivateKeyHex != "":
		result.ed25519Priv, _ = keyFromHex(cfg.ED25519PrivateKeyHex)
	default:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		result.ed25519Priv = priv
		in.Log().Warn("no signing key configured, tokens are signed with a random key and will not survive a restart")
	}

	return result, nil
}

// Impl signs a fresh token for every challenge.
type Impl struct {
	realm       string
	deviceID    string
	issuer      string
	ttl         time.Duration
	hs512Secret []byte
	ed25519Priv ed25519.PrivateKey
	lg          *slog.Logger
}

// PublicKey returns the ed25519 public key tokens are signed with, or nil
// when HS512 is used.
func (i *Impl) PublicKey() ed25519.PublicKey {
	if i.ed25519Priv == nil {
		return nil
	}
	return i.ed25519Priv.Public().(ed25519.PublicKey)
}

// Answer is what is submitted for a challenge.
type Answer struct {
	Token string `json:"token"`
}

func (i *Impl) signJWT(claims jwt.MapClaims) (string, error) {
	now := time.Now()
	claims["iat"] = now.Unix()
	claims["nbf"] = now.Add(-1 * time.Minute).Unix()
	claims["exp"] = now.Add(i.ttl).Unix()

	if len(i.hs512Secret) == 0 {
		return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.ed25519Priv)
	} else {
		return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.hs512Secret)
	}
}

func (i *Impl) OnChallengeReceived(_ context.Context, arb realm.Arbiter, challenge json.RawMessage) {
	claims := jwt.MapClaims{
		"iss": i.issuer,
		"sub": i.deviceID,
		"aud": i.realm,
		"jti": uuid.Must(uuid.NewV7()).String(),
	}

	if len(challenge) != 0 && json.Valid(challenge) {
		claims["challenge"] = challenge
	}

	token, err := i.signJWT(claims)
	if err != nil {
		i.lg.Error("can't sign device token", "err", err)
		arb.SubmitFailure(failureInfo(fmt.Errorf("%w: %w", ErrCantSign, err)))
		return
	}

	answer, err := json.Marshal(Answer{Token: token})
	if err != nil {
		arb.SubmitFailure(failureInfo(fmt.Errorf("%w: %w", ErrCantEncodeToken, err)))
		return
	}

	i.lg.Debug("submitting device token", "jti", claims["jti"])
	arb.SubmitAnswer(answer)
}

func (i *Impl) OnAuthenticationSuccess(context.Context, json.RawMessage) {
	i.lg.Debug("device accepted")
}

func (i *Impl) OnAuthenticationFailure(_ context.Context, failure json.RawMessage) {
	i.lg.Error("device rejected", "info", string(failure))
}

func failureInfo(err error) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return data
}
