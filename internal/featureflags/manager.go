// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags read by the engagement backend.
const (
	// MentionNotifications notifies users mentioned with @username in comments.
	MentionNotifications = "mention_notifications"
	// DirectShares allows sharing a post directly with other users.
	DirectShares = "direct_shares"
)

// rule is a parsed flag value: fully on, fully off or a percentage rollout.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rule{raw: value, percent: 0}, true
	}
	pct, found := strings.CutSuffix(value, "%")
	if !found {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(n, 0), 100)}, true
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "mention_notifications=on,direct_shares=25%"
type Manager struct {
	flags map[string]rule
}

// NewManager creates a feature-flag manager from a comma-separated config
// string. Malformed pairs and unknown values are ignored.
func NewManager(raw string) *Manager {
	out := make(map[string]rule)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = normalize(key)
		r, valid := parseRule(normalize(value))
		if key == "" || !valid {
			continue
		}
		out[key] = r
	}

	return &Manager{flags: out}
}

// Configured reports whether name appears in the configuration.
func (m *Manager) Configured(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.flags[normalize(name)]
	return ok
}

// Enabled returns whether a flag is enabled for a given user. Unconfigured
// flags are off. A percentage rollout is deterministic per user and never
// includes the anonymous user 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	return r.enabledFor(name, userID)
}

// EnabledByDefault is Enabled for flags that are on unless configured otherwise.
func (m *Manager) EnabledByDefault(name string, userID uint) bool {
	if !m.Configured(name) {
		return true
	}
	return m.Enabled(name, userID)
}

func (r rule) enabledFor(name string, userID uint) bool {
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, r := range m.flags {
		out[k] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name, r := range m.flags {
		out[name] = r.enabledFor(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
