package identity

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:TEST-TOKEN"

func signedInitData(t *testing.T, token string, fields url.Values) string {
	t.Helper()

	fields.Set(hashField, NewVerifier(token).Sign(fields))

	return fields.Encode()
}

func baseFields() url.Values {
	return url.Values{
		"query_id":  {"AAH"},
		"auth_date": {"1700000000"},
		"user":      {`{"id":42,"first_name":"A","username":"lucky"}`},
	}
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	v := NewVerifier(testToken)

	t.Run("valid_credential_returns_user", func(t *testing.T) {
		t.Parallel()

		got, err := v.Verify(signedInitData(t, testToken, baseFields()))
		require.NoError(t, err)
		assert.Equal(t, Identity{UserID: 42, Username: "lucky"}, got)
	})

	t.Run("tampered_field", func(t *testing.T) {
		t.Parallel()

		q, err := url.ParseQuery(signedInitData(t, testToken, baseFields()))
		require.NoError(t, err)
		q.Set("user", `{"id":43}`)

		_, err = v.Verify(q.Encode())
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("wrong_bot_token", func(t *testing.T) {
		t.Parallel()

		_, err := v.Verify(signedInitData(t, "other:token", baseFields()))
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("missing_hash", func(t *testing.T) {
		t.Parallel()

		_, err := v.Verify(baseFields().Encode())
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := v.Verify("%zz=&hash=nothex")
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("signed_without_user", func(t *testing.T) {
		t.Parallel()

		f := baseFields()
		f.Del("user")

		_, err := v.Verify(signedInitData(t, testToken, f))
		require.ErrorIs(t, err, ErrMissingUser)
	})

	t.Run("signed_with_malformed_user", func(t *testing.T) {
		t.Parallel()

		f := baseFields()
		f.Set("user", `{"id":"abc"}`)

		_, err := v.Verify(signedInitData(t, testToken, f))
		require.ErrorIs(t, err, ErrMissingUser)
	})
}

func TestVerifier_MaxAge(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier(testToken, WithMaxAge(time.Hour), WithClock(func() time.Time { return now }))

	fresh := baseFields()
	fresh.Set("auth_date", strconv.FormatInt(now.Add(-time.Minute).Unix(), 10))

	_, err := v.Verify(signedInitData(t, testToken, fresh))
	require.NoError(t, err)

	stale := baseFields()
	stale.Set("auth_date", strconv.FormatInt(now.Add(-2*time.Hour).Unix(), 10))

	_, err = v.Verify(signedInitData(t, testToken, stale))
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifier_MintRoundTrip(t *testing.T) {
	t.Parallel()

	v := NewVerifier(testToken, WithMaxAge(time.Hour))

	got, err := v.Verify(v.Mint(Identity{UserID: 4242, Username: "neo"}, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 4242, Username: "neo"}, got)

	_, err = NewVerifier("other-token").Verify(v.Mint(Identity{UserID: 1}, time.Now()))
	require.ErrorIs(t, err, ErrInvalidCredential)
}
