// Package clients holds the registry of downstream app backends. Authorization
// codes are minted for an app, and the app's id is the client_id it presents
// when exchanging them.
package clients

import (
	"strings"
	"time"
)

type App struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	RedirectURIs []string  `json:"redirect_uris"`
	CreatedAt    time.Time `json:"created_at"`
}

// AllowsRedirect reports whether uri is one of the app's registered redirect URIs.
// An empty uri is allowed; the broker then hands the code back without a redirect.
func (a *App) AllowsRedirect(uri string) bool {
	if uri == "" {
		return true
	}
	for _, registered := range a.RedirectURIs {
		if strings.TrimRight(registered, "/") == strings.TrimRight(uri, "/") {
			return true
		}
	}
	return false
}

// DefaultRedirect returns the first registered redirect URI, if any.
func (a *App) DefaultRedirect() string {
	if len(a.RedirectURIs) == 0 {
		return ""
	}
	return a.RedirectURIs[0]
}
