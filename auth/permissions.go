package auth

import "slices"

// CheckPermission ensures payload grants permission. The permissions claim
// must be present even when permission is empty; an empty permission then
// means no specific capability is required.
func CheckPermission(permission string, payload Payload) error {
	granted, ok := payload.Permissions()
	if !ok {
		return ErrPermissionsClaimMissing
	}
	if permission == "" {
		return nil
	}
	if !slices.Contains(granted, permission) {
		return ErrPermissionDenied
	}
	return nil
}
