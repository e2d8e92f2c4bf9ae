package tms

import (
	"net/http"
	"net/url"
	"strings"
)

// Endpoint describes one API call site: an HTTP method and a URL path
// template whose {name} segments are filled from path parameters.
// Endpoints are immutable; per-call data travels in params and query.
type Endpoint struct {
	Method string
	Path   string
}

// Endpoints consumed by the operator commands.
var (
	ListProjects       = Endpoint{http.MethodGet, "/projects"}
	ListKeys           = Endpoint{http.MethodGet, "/projects/{projectId}/keys"}
	ListKeyLinks       = Endpoint{http.MethodGet, "/projects/{projectId}/keys/{keyId}/key_links"}
	CreateKeyLink      = Endpoint{http.MethodPost, "/projects/{projectId}/keys/{keyId}/key_links"}
	ListUsers          = Endpoint{http.MethodGet, "/projects/{projectId}/users"}
	DeleteUser         = Endpoint{http.MethodDelete, "/projects/{projectId}/users/{userId}"}
	CreateDomain       = Endpoint{http.MethodPost, "/domains"}
	CreateSubDomain    = Endpoint{http.MethodPost, "/domains/{domainId}/subDomains"}
	CreateClient       = Endpoint{http.MethodPost, "/clients"}
	CreateBusinessUnit = Endpoint{http.MethodPost, "/businessUnits"}
)

// URL expands the path template against base and attaches the query string.
// Path parameter values are escaped; a placeholder with no matching param
// is left as-is and will fail server-side, which is easier to diagnose
// than a silently truncated path.
func (e Endpoint) URL(base string, params map[string]string, query url.Values) string {
	path := e.Path
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	u := strings.TrimSuffix(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
