// Package auth authenticates outgoing requests before the adapter sends them.
//
// The core contract is AuthenticationProvider. Implementations:
//
//   - AnonymousAuthenticationProvider: leaves the request untouched
//   - BaseBearerTokenAuthenticationProvider: adds a bearer token from an AccessTokenProvider
//   - APIKeyAuthenticationProvider: adds a key as a header or query parameter
//   - BasicAuthenticationProvider: adds HTTP basic credentials
//
// Credentials are only attached for hosts accepted by an
// AllowedHostsValidator. Requests to other hosts go out unauthenticated;
// credentials are never sent over plain http.
//
// CachingAccessTokenProvider obtains tokens from a TokenSource (for
// example ClientCredentialsTokenSource) and reuses them until the JWT
// exp claim is near.
//
// Providers can be built from configuration:
//
//	auth:
//	  type: "client_credentials"
//	  allowed_hosts: ["graph.example.com"]
//	  client_credentials:
//	    token_url: "https://login.example.com/oauth2/token"
//	    client_id: "..."
//	    client_secret: "..."
//	    scopes: ["https://graph.example.com/.default"]
package auth
