package auth_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuslibrary/internal/auth"
)

func unsignedToken(payload string) string {
	return tokenWithHeader(`{"alg":"HS256","typ":"JWT"}`, payload)
}

func tokenWithHeader(header, payload string) string {
	h := base64.RawURLEncoding.EncodeToString([]byte(header))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return h + "." + body + ".c2lnbmF0dXJlLWlzLW5vdC1jaGVja2Vk"
}

func Test_PassthroughDecoder(t *testing.T) {
	dec := auth.NewPassthroughDecoder()

	tests := []struct {
		name    string
		token   string
		want    auth.Claim
		wantErr error
	}{
		{
			name:  "full_claim",
			token: unsignedToken(`{"srcode":"24-43298","fullname":"Juan Dela Cruz","type":"student"}`),
			want:  auth.Claim{SRCode: "24-43298", FullName: "Juan Dela Cruz", Type: "student"},
		},
		{
			name:  "defaults_for_optional_fields",
			token: unsignedToken(`{"srcode":"24-43298"}`),
			want:  auth.Claim{SRCode: "24-43298", FullName: "", Type: "student"},
		},
		{
			name:  "teacher_type_kept",
			token: unsignedToken(`{"srcode":"T-0001","fullname":"Ma'am Reyes","type":"teacher"}`),
			want:  auth.Claim{SRCode: "T-0001", FullName: "Ma'am Reyes", Type: "teacher"},
		},
		{
			name:  "header_without_alg",
			token: tokenWithHeader(`{"typ":"JWT"}`, `{"srcode":"24-43298","fullname":"Juan Dela Cruz"}`),
			want:  auth.Claim{SRCode: "24-43298", FullName: "Juan Dela Cruz", Type: "student"},
		},
		{
			name:  "unknown_alg",
			token: tokenWithHeader(`{"alg":"XYZ"}`, `{"srcode":"24-43298","type":"teacher"}`),
			want:  auth.Claim{SRCode: "24-43298", Type: "teacher"},
		},
		{
			name:  "header_not_json",
			token: "bm90LWpzb24." + base64.RawURLEncoding.EncodeToString([]byte(`{"srcode":"24-43298"}`)) + ".",
			want:  auth.Claim{SRCode: "24-43298", Type: "student"},
		},
		{
			name:  "padded_payload",
			token: "e30." + base64.URLEncoding.EncodeToString([]byte(`{"srcode":"24-4"}`)) + ".sig",
			want:  auth.Claim{SRCode: "24-4", Type: "student"},
		},
		{name: "missing_srcode", token: unsignedToken(`{"fullname":"No Code"}`), wantErr: auth.ErrMalformedToken},
		{name: "two_segments", token: "abc.def", wantErr: auth.ErrMalformedToken},
		{name: "four_segments", token: "a.b.c.d", wantErr: auth.ErrMalformedToken},
		{name: "payload_not_base64", token: "eyJhbGciOiJIUzI1NiJ9.!!!.sig", wantErr: auth.ErrMalformedToken},
		{name: "payload_not_json", token: unsignedToken(`not json`), wantErr: auth.ErrMalformedToken},
		{name: "empty", token: "", wantErr: auth.ErrMalformedToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dec.Decode(tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_VerifyingDecoder(t *testing.T) {
	const key = "library-test-key"
	dec, err := auth.NewVerifyingDecoder(key, "campus-library")
	require.NoError(t, err)

	claim := auth.Claim{SRCode: "24-43298", FullName: "Juan Dela Cruz", Type: "student"}

	t.Run("valid_token", func(t *testing.T) {
		token, err := auth.IssueIdentity(claim, "campus-library", key, time.Hour)
		require.NoError(t, err)
		got, err := dec.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, claim, got)
	})

	t.Run("wrong_key", func(t *testing.T) {
		token, err := auth.IssueIdentity(claim, "campus-library", "other-key", time.Hour)
		require.NoError(t, err)
		_, err = dec.Decode(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := auth.IssueIdentity(claim, "campus-library", key, -time.Hour)
		require.NoError(t, err)
		_, err = dec.Decode(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong_issuer", func(t *testing.T) {
		token, err := auth.IssueIdentity(claim, "someone-else", key, time.Hour)
		require.NoError(t, err)
		_, err = dec.Decode(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unsigned_token_rejected", func(t *testing.T) {
		_, err := dec.Decode(unsignedToken(`{"srcode":"24-43298","exp":9999999999}`))
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := dec.Decode("not-a-token")
		assert.ErrorIs(t, err, auth.ErrMalformedToken)
	})
}

func Test_NewDecoder(t *testing.T) {
	d, err := auth.NewDecoder("passthrough", "", "")
	require.NoError(t, err)
	assert.IsType(t, &auth.PassthroughDecoder{}, d)

	d, err = auth.NewDecoder("verify", "k", "")
	require.NoError(t, err)
	assert.IsType(t, &auth.VerifyingDecoder{}, d)

	_, err = auth.NewDecoder("verify", "", "")
	assert.Error(t, err)

	_, err = auth.NewDecoder("magic", "k", "")
	assert.Error(t, err)
}

func Test_AdminSession_RoundTrip(t *testing.T) {
	session, err := auth.IssueAdmin("admin", "campus-library", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseAdmin(session.Token, "secret", "campus-library")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = auth.ParseAdmin(session.Token, "wrong", "campus-library")
	assert.Error(t, err)

	_, err = auth.ParseAdmin(session.Token, "secret", "other-issuer")
	assert.Error(t, err)
}

func Test_Password(t *testing.T) {
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "admin123"))
	assert.False(t, auth.CheckPassword(hash, "admin124"))
}
