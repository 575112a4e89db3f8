package devicetoken

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/realm/realmtest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSeedHex = strings.Repeat("2a", ed25519.SeedSize)

func TestConfigValid(t *testing.T) {
	for _, tt := range []struct {
		name string
		cfg  Config
		err  error
	}{
		{name: "minimal", cfg: Config{DeviceID: "laptop"}},
		{name: "hs512", cfg: Config{DeviceID: "laptop", HS512Secret: "hunter2", TTL: "1m"}},
		{name: "ed25519", cfg: Config{DeviceID: "laptop", ED25519PrivateKeyHex: testSeedHex}},
		{name: "no device", cfg: Config{}, err: ErrNoDeviceID},
		{name: "both keys", cfg: Config{DeviceID: "laptop", HS512Secret: "x", ED25519PrivateKeyHex: testSeedHex}, err: ErrBothKeys},
		{name: "short key", cfg: Config{DeviceID: "laptop", ED25519PrivateKeyHex: "2a2a"}, err: ErrBadKey},
		{name: "not hex", cfg: Config{DeviceID: "laptop", ED25519PrivateKeyHex: "zz"}, err: ErrBadKey},
		{name: "bad ttl", cfg: Config{DeviceID: "laptop", TTL: "soon"}, err: ErrBadTTL},
		{name: "negative ttl", cfg: Config{DeviceID: "laptop", TTL: "-1m"}, err: ErrBadTTL},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Valid(); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}

func build(t *testing.T, cfg Config) *Impl {
	t.Helper()

	params, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}

	l, err := Factory{}.Build(t.Context(), &listener.BuildInput{
		Realm:      "device",
		Parameters: params,
		Logger:     slog.Default(),
	})
	if err != nil {
		t.Fatal(err)
	}

	return l.(*Impl)
}

// tokenFor runs one challenge through a handler backed by impl and returns the
// submitted token.
func tokenFor(t *testing.T, impl *Impl, challenge json.RawMessage) string {
	t.Helper()

	h := realmtest.NewHandler(t, "device", impl)
	c := &realmtest.Contender{}
	h.HandleChallenge(t.Context(), c, challenge)

	ev := c.Events()
	if len(ev) != 1 || ev[0].Kind != "answer" {
		t.Fatalf("wrong events: %+v", ev)
	}

	var ans Answer
	if err := json.Unmarshal(ev[0].Payload, &ans); err != nil {
		t.Fatal(err)
	}

	return ans.Token
}

func TestTokens(t *testing.T) {
	seed, err := hex.DecodeString(testSeedHex)
	if err != nil {
		t.Fatal(err)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public()

	for _, tt := range []struct {
		name   string
		cfg    Config
		method string
		key    func(impl *Impl) any
	}{
		{
			name:   "hs512",
			cfg:    Config{DeviceID: "laptop", HS512Secret: "hunter2", Issuer: "test"},
			method: "HS512",
			key:    func(*Impl) any { return []byte("hunter2") },
		},
		{
			name:   "configured ed25519 key",
			cfg:    Config{DeviceID: "laptop", ED25519PrivateKeyHex: testSeedHex, Issuer: "test"},
			method: "EdDSA",
			key:    func(*Impl) any { return pub },
		},
		{
			name:   "random ed25519 key",
			cfg:    Config{DeviceID: "laptop", Issuer: "test"},
			method: "EdDSA",
			key:    func(impl *Impl) any { return impl.PublicKey() },
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			impl := build(t, tt.cfg)
			raw := tokenFor(t, impl, json.RawMessage(`{"nonce":"abc"}`))

			tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
				return tt.key(impl), nil
			},
				jwt.WithValidMethods([]string{tt.method}),
				jwt.WithAudience("device"),
				jwt.WithIssuer("test"),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				t.Fatal(err)
			}

			claims := tok.Claims.(jwt.MapClaims)

			if sub, _ := claims.GetSubject(); sub != "laptop" {
				t.Errorf("sub = %q", sub)
			}

			if jti, _ := claims["jti"].(string); uuid.Validate(jti) != nil {
				t.Errorf("jti is not a uuid: %q", jti)
			}

			exp, err := claims.GetExpirationTime()
			if err != nil {
				t.Fatal(err)
			}
			if d := time.Until(exp.Time); d > DefaultTTL || d < DefaultTTL-time.Minute {
				t.Errorf("token expires in %s", d)
			}

			ch, _ := claims["challenge"].(map[string]any)
			if ch["nonce"] != "abc" {
				t.Errorf("challenge claim = %v", claims["challenge"])
			}
		})
	}
}

func TestTokensAreUnique(t *testing.T) {
	impl := build(t, Config{DeviceID: "laptop", HS512Secret: "hunter2"})

	a := tokenFor(t, impl, realmtest.Payload(t))
	b := tokenFor(t, impl, realmtest.Payload(t))

	if a == b {
		t.Error("two challenges got the same token")
	}
}
