// Package cache memoizes verdicts. A verdict is a pure function of the
// profile, the job, and the rule set, so the key carries all three and a
// rule-set change makes every older entry unreachable.
package cache

import (
	"fmt"
	"strings"

	"visamatch/internal/eligibility"
	"visamatch/pkg/platform/canonical"
)

const keyPrefix = "elig:"

// Key returns the cache key for a pair under a rule-set version. The whole
// profile is fingerprinted because verified attributes change verdicts.
func Key(version string, visa eligibility.VisaProfile, job eligibility.JobConstraints) (string, error) {
	digest, err := canonical.Hash(map[string]any{
		"visa": visa,
		"job":  job.Normalized(),
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint pair: %w", err)
	}
	return keyPrefix + version + ":" + digest, nil
}

// versionOf extracts the rule-set version from a key built by Key.
func versionOf(key string) string {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return ""
	}
	i := strings.LastIndex(rest, ":")
	if i < 0 {
		return ""
	}
	return rest[:i]
}

func cloneResult(r *eligibility.Result) *eligibility.Result {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Restrictions = append([]string{}, r.Restrictions...)
	cp.Notes = append([]string{}, r.Notes...)
	cp.DocumentsRequired = append([]string{}, r.DocumentsRequired...)
	if r.BlockedBy != nil {
		b := *r.BlockedBy
		cp.BlockedBy = &b
	}
	return &cp
}
