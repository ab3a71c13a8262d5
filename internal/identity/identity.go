// Package identity verifies Telegram WebApp init data and extracts the caller's user id.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingUser       = errors.New("missing user")
)

const (
	hashField     = "hash"
	userField     = "user"
	authDateField = "auth_date"
	webAppKey     = "WebAppData"
)

// Identity is the trusted caller extracted from a verified credential.
type Identity struct {
	UserID   uint64
	Username string
}

// Verifier checks init data signed with the bot token.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

type Option func(*Verifier)

// WithMaxAge rejects credentials whose auth_date is older than d. Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) { v.maxAge = d }
}

// WithClock overrides the time source used by WithMaxAge.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(botToken string, opts ...Option) *Verifier {
	mac := hmac.New(sha256.New, []byte(webAppKey))
	mac.Write([]byte(botToken))

	v := &Verifier{
		secret: mac.Sum(nil),
		now:    time.Now,
	}
	for _, o := range opts {
		o(v)
	}

	return v
}

// Verify validates the signature of initData and returns the embedded user.
func (v *Verifier) Verify(initData string) (Identity, error) {
	fields, err := url.ParseQuery(initData)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: parse: %v", ErrInvalidCredential, err)
	}

	got, err := hex.DecodeString(fields.Get(hashField))
	if err != nil || len(got) == 0 {
		return Identity{}, fmt.Errorf("%w: bad hash", ErrInvalidCredential)
	}

	if !hmac.Equal(got, v.sign(fields)) {
		return Identity{}, ErrInvalidCredential
	}

	if v.maxAge > 0 {
		err = v.checkAge(fields.Get(authDateField))
		if err != nil {
			return Identity{}, err
		}
	}

	return extractUser(fields.Get(userField))
}

// Sign computes the hex signature for fields. It is exported for tests and local tooling that
// need to mint credentials.
func (v *Verifier) Sign(fields url.Values) string {
	return hex.EncodeToString(v.sign(fields))
}

// Mint builds signed init data for id, as Telegram would hand it to the web app.
func (v *Verifier) Mint(id Identity, authDate time.Time) string {
	user, _ := json.Marshal(struct {
		ID       uint64 `json:"id"`
		Username string `json:"username,omitempty"`
	}{id.UserID, id.Username})

	fields := url.Values{}
	fields.Set(authDateField, strconv.FormatInt(authDate.Unix(), 10))
	fields.Set(userField, string(user))
	fields.Set(hashField, v.Sign(fields))

	return fields.Encode()
}

func (v *Verifier) sign(fields url.Values) []byte {
	pairs := make([]string, 0, len(fields))
	for k, vals := range fields {
		if k == hashField || len(vals) == 0 {
			continue
		}

		pairs = append(pairs, k+"="+vals[0])
	}

	sort.Strings(pairs)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))

	return mac.Sum(nil)
}

func (v *Verifier) checkAge(raw string) error {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad auth_date", ErrInvalidCredential)
	}

	if v.now().Sub(time.Unix(ts, 0)) > v.maxAge {
		return fmt.Errorf("%w: expired", ErrInvalidCredential)
	}

	return nil
}

func extractUser(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingUser
	}

	var u struct {
		ID       json.Number `json:"id"`
		Username string      `json:"username"`
	}

	err := json.Unmarshal([]byte(raw), &u)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMissingUser, err)
	}

	id, err := strconv.ParseUint(u.ID.String(), 10, 64)
	if err != nil || id == 0 {
		return Identity{}, fmt.Errorf("%w: bad id", ErrMissingUser)
	}

	return Identity{UserID: id, Username: u.Username}, nil
}
