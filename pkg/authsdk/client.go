package authsdk

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Endpoints holds the paths of the remote authentication API, relative to
// SDKClient.BaseURL.
type Endpoints struct {
	Login    string
	Register string
	Refresh  string
	Logout   string
	User     string
	Verify   string
}

// DefaultEndpoints returns the paths served by the AutoAssist API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/api/login",
		Register: "/api/cadastro",
		Refresh:  "/api/refresh",
		Logout:   "/api/logout",
		User:     "/api/user",
		Verify:   "/api/verify-token",
	}
}

// SDKClient is a client for the remote authentication API.
// It carries transport and naming configuration and creates Sessions bound to
// a CredentialStore.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Endpoints  Endpoints

	// Keys names the three CredentialStore entries owned by a Session.
	Keys StoreKeys

	// LoginPath is the location of the login surface. Logout only navigates
	// there when the navigator is somewhere else.
	LoginPath string

	// Logger is used when the request context carries no logger.
	// Default: slog.Default()
	Logger *slog.Logger
}

// NewSDKClient creates a new client with the default endpoints and store keys.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Endpoints: DefaultEndpoints(),
		Keys:      DefaultStoreKeys(),
		LoginPath: "/login",
	}
}

// NewSession creates the session object for one application. Build it once and
// share it: the refresh guard only serializes callers of the same Session.
// A nil navigator is replaced by NopNavigator.
func (c *SDKClient) NewSession(store CredentialStore, nav Navigator) *Session {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Session{
		client: c,
		store:  store,
		nav:    nav,
	}
}

func (c *SDKClient) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
