// Package wellknown describes the OAuth 2.0 Protected Resource Metadata
// document (RFC 9728) published by the API.
package wellknown

import (
	"net/url"
	"strings"
)

// Path is where the metadata document is served.
const Path = "/.well-known/oauth-protected-resource"

type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	JwksURI                string   `json:"jwks_uri,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
}

// NewProtectedResource describes a resource at publicURL that accepts header
// bearer tokens issued by issuer. permissions are advertised as scopes.
func NewProtectedResource(publicURL, issuer, jwksURI string, permissions []string) ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:               strings.TrimSuffix(publicURL, "/"),
		AuthorizationServers:   []string{issuer},
		JwksURI:                jwksURI,
		ScopesSupported:        permissions,
		BearerMethodsSupported: []string{"header"},
		ResourceName:           "Drinks catalog",
	}
}

// DocumentURL is the absolute location of the metadata document for m. It is
// empty when m has no usable resource URL.
func (m ProtectedResourceMetadata) DocumentURL() string {
	u, err := url.Parse(m.Resource)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: Path + strings.TrimSuffix(u.Path, "/")}).String()
}
