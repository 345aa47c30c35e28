package webhook

import (
	"regexp"
	"strings"
)

/* Redaction drops sensitive keys from instance data before it leaves the
 * system. Matching is case-insensitive, exact or substring. Two fields are
 * always preserved regardless of pattern match: the generated application
 * admin username and password, which are intentionally handed to the
 * subscriber as the one-time credential handoff.
 */

// Exception keys delivered in cleartext by design
const (
	AppAdminUsernameKey = "app_admin_username"
	AppAdminPasswordKey = "app_admin_password"
)

var defaultSensitiveKeys = []string{
	"private_key",
	"secret",
	"password",
	"token",
	"api_key",
	"ssh_key",
}

var defaultSensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)key`),
	regexp.MustCompile(`(?i)private`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)pass`),
	regexp.MustCompile(`(?i)username`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)api`),
	regexp.MustCompile(`(?i)ssh`),
}

// RedactionPolicy decides which instance data keys survive into payloads
type RedactionPolicy struct {
	keys       []string
	patterns   []*regexp.Regexp
	exceptions map[string]struct{}
}

// DefaultRedactionPolicy returns the built-in sensitive-key policy
func DefaultRedactionPolicy() RedactionPolicy {
	return RedactionPolicy{
		keys:     defaultSensitiveKeys,
		patterns: defaultSensitivePatterns,
		exceptions: map[string]struct{}{
			AppAdminUsernameKey: {},
			AppAdminPasswordKey: {},
		},
	}
}

// WithSensitiveKeys returns a copy of the policy extended with extra keys.
// Extra keys match exact or substring like the built-ins; they are
// lowercased here because Sensitive compares against lowercased data keys.
func (p RedactionPolicy) WithSensitiveKeys(keys ...string) RedactionPolicy {
	out := p
	out.keys = append([]string{}, p.keys...)
	for _, k := range keys {
		out.keys = append(out.keys, strings.ToLower(k))
	}
	return out
}

// Sensitive reports whether a key must be dropped
func (p RedactionPolicy) Sensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := p.exceptions[lower]; ok {
		return false
	}

	for _, k := range p.keys {
		if lower == k || strings.Contains(lower, k) {
			return true
		}
	}
	for _, re := range p.patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

/* Redact returns a copy of data with every sensitive key dropped.
 * Total and idempotent: redacting a redacted mapping is a no-op.
 */
func (p RedactionPolicy) Redact(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		if p.Sensitive(k) {
			continue
		}
		out[k] = v
	}
	return out
}
