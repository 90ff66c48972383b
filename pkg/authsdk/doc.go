/*
Package authsdk is the client-side session and credential manager for the
AutoAssist API.

# Overview

The package holds a short-lived access token and a long-lived refresh token,
renews expired sessions against the remote authentication API, makes sure a
rotating refresh token is never presented twice, and clears local session
state when the session cannot be recovered.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: transport and naming configuration (base URL, endpoints, store keys)
  - Session: the login state of one application, bound to a CredentialStore

Build the Session once and pass it to everything that talks to the API:

	client := authsdk.NewSDKClient("https://api.example.com")
	session := client.NewSession(authsdk.NewMemoryStore(), authsdk.NopNavigator{})

	// Log in (email is lowercased before it is sent)
	resp, err := session.Login(ctx, "User@Mail.com", "secret")

	// Query local state
	session.IsAuthenticated(ctx) // presence check only
	user := session.GetUser(ctx)  // cached profile or nil

	// Call a protected endpoint
	resp, err := session.AuthenticatedFetch(ctx, "/api/chat", &authsdk.RequestOptions{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"message":"hello"}`),
	})

	// Log out and go back to the login surface
	session.Logout(ctx, true)

# Credential Storage

A CredentialStore keeps three entries: access token, refresh token and the
cached user profile. Their names are configurable through SDKClient.Keys.
MemoryStore keeps them in process memory; durable drivers (sqlite, redis)
live under internal/credstore.

# Automatic Token Refresh

AuthenticatedFetch attaches the stored access token. When the server answers
401 and a refresh token is stored it:

 1. Calls Refresh, joining any refresh already in flight
 2. Resends the request once, to the same resolved URL
 3. Returns that second response whatever its status

Only one call to the refresh endpoint is ever in flight per Session. If the
refresh token rotates, every waiting caller picks up the rotated token and the
old one is never reused.

# Error Handling

The SDK returns typed errors for specific conditions:

  - *AuthError: login rejected
  - *ValidationError: registration rejected
  - ErrSessionExpired: refresh attempted with no refresh token
  - *RefreshFailedError (matches ErrRefreshFailed): refresh token rejected
  - ErrSessionTerminated: a 401 could not be recovered because refresh failed
  - *NetworkError: no response was received
  - *APIError: any other non-success response from a helper call

The session is always logged out before ErrSessionExpired, ErrRefreshFailed or
ErrSessionTerminated reach the caller. A 401 with no refresh token stored is
not an error: the response is returned as-is.

Example:

	resp, err := session.AuthenticatedFetch(ctx, "/api/chat", nil)
	switch {
	case errors.Is(err, authsdk.ErrSessionTerminated):
		// credentials are gone, show the login screen
	case err != nil:
		var netErr *authsdk.NetworkError
		if errors.As(err, &netErr) {
			// offline, try again later
		}
		return err
	}

# Navigation

Logout(ctx, true) sends the Navigator to SDKClient.LoginPath unless it is
already there. That guard keeps a failed refresh on the login page itself from
looping.

# Thread Safety

Sessions are safe for concurrent use. Login, logout and the commit of a
refresh are serialized; a refresh that settles after a logout or a new login
does not write its result.
*/
package authsdk
