package auth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		want    string
		wantErr *Error
	}{
		{name: "absent", wantErr: ErrMissingHeader},
		{name: "empty", header: []string{""}, wantErr: ErrMissingHeader},
		{name: "whitespace only", header: []string{"   "}, wantErr: ErrMissingHeader},
		{name: "basic scheme", header: []string{"Basic dXNlcjpwYXNz"}, wantErr: ErrInvalidHeaderScheme},
		{name: "token without scheme", header: []string{"eyJhbGciOi.x.y"}, wantErr: ErrInvalidHeaderScheme},
		{name: "scheme only", header: []string{"Bearer"}, wantErr: ErrMissingToken},
		{name: "three parts", header: []string{"Bearer abc def"}, wantErr: ErrMalformedHeader},
		{name: "wrong scheme beats part count", header: []string{"Token a b c"}, wantErr: ErrInvalidHeaderScheme},
		{name: "ok", header: []string{"Bearer abc.def.ghi"}, want: "abc.def.ghi"},
		{name: "lowercase scheme", header: []string{"bearer abc"}, want: "abc"},
		{name: "mixed case scheme", header: []string{"BeArEr abc"}, want: "abc"},
		{name: "extra spacing", header: []string{"  Bearer   abc  "}, want: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for _, v := range tt.header {
				h.Add(AuthorizationHeader, v)
			}
			got, err := TokenFromHeader(h)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Empty(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestErrorWireFields(t *testing.T) {
	require.Equal(t, "authorization_header_missing", ErrMissingHeader.Code)
	require.Equal(t, "Authorization header is expected.", ErrMissingHeader.Description)
	require.Equal(t, http.StatusUnauthorized, ErrMissingHeader.Status)
	require.Equal(t, "unauthorized", ErrPermissionDenied.Code)
	require.Equal(t, "token_expired", ErrTokenExpired.Code)
}

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := ErrKeyNotFound.WithCause(cause).WithStatus(http.StatusForbidden)

	require.True(t, errors.Is(err, ErrKeyNotFound))
	require.False(t, errors.Is(err, ErrTokenExpired))
	require.True(t, errors.Is(err, cause))
	require.Equal(t, http.StatusUnauthorized, ErrKeyNotFound.Status, "sentinel must not be mutated")
	require.Equal(t, "KeyNotFound", err.Kind.String())
}
