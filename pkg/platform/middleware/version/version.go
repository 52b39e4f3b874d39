// Package version stamps responses with the rule-set version that produced them.
package version

import (
	"net/http"
)

// HeaderRuleSetVersion carries the rule-set version on every response.
const HeaderRuleSetVersion = "X-Rule-Set-Version"

// Source reports the version currently serving requests.
type Source interface {
	Version() string
}

// RuleSetHeader creates middleware that sets HeaderRuleSetVersion from src.
// The version is read once per request, before the handler runs, so a
// catalog reload mid-request does not change the header.
//
// Usage:
//
//	r.Use(version.RuleSetHeader(holder))
func RuleSetHeader(src Source) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v := src.Version(); v != "" {
				w.Header().Set(HeaderRuleSetVersion, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
