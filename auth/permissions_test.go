package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPermission(t *testing.T) {
	granted := Payload{"sub": "auth0|barista", "permissions": []any{"get:drinks-detail", "post:drinks"}}

	tests := []struct {
		name       string
		permission string
		payload    Payload
		wantErr    *Error
	}{
		{name: "granted", permission: "post:drinks", payload: granted},
		{name: "not granted", permission: "delete:drinks", payload: granted, wantErr: ErrPermissionDenied},
		{name: "claim missing", permission: "post:drinks", payload: Payload{"sub": "x"}, wantErr: ErrPermissionsClaimMissing},
		{name: "empty requirement with claim", permission: "", payload: granted},
		{name: "empty requirement with empty claim", permission: "", payload: Payload{"permissions": []any{}}},
		{name: "empty requirement without claim", permission: "", payload: Payload{}, wantErr: ErrPermissionsClaimMissing},
		{name: "typed string slice", permission: "patch:drinks", payload: Payload{"permissions": []string{"patch:drinks"}}},
		{name: "claim not a list", permission: "post:drinks", payload: Payload{"permissions": "post:drinks"}, wantErr: ErrPermissionDenied},
		{name: "claim not a list empty requirement", permission: "", payload: Payload{"permissions": "post:drinks"}},
		{name: "exact match only", permission: "post:drink", payload: granted, wantErr: ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPermission(tt.permission, tt.payload)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestPayloadAccessors(t *testing.T) {
	p := Payload{"sub": "auth0|123", "permissions": []any{"a", 7, "b"}, "aud": "coffe"}

	require.Equal(t, "auth0|123", p.Subject())
	perms, ok := p.Permissions()
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, perms)

	var std struct {
		Audience string `json:"aud"`
	}
	require.NoError(t, p.Claims(&std))
	require.Equal(t, "coffe", std.Audience)
}
