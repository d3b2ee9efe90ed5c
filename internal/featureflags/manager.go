// Package featureflags evaluates FEATURE_FLAGS rollouts per user.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Rollout is the parsed state of one flag.
type Rollout struct {
	// Percent of users that see the flag; 100 means everyone.
	Percent int
}

func (r Rollout) String() string {
	switch r.Percent {
	case 0:
		return "off"
	case 100:
		return "on"
	default:
		return strconv.Itoa(r.Percent) + "%"
	}
}

// Manager holds flags parsed from a comma-separated list such as
// "post_edit_image=on,new_feed=25%".
type Manager struct {
	flags map[string]Rollout
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]Rollout)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = normalize(key)
		if key == "" {
			continue
		}
		rollout, ok := parseRollout(normalize(value))
		if !ok {
			continue
		}
		out[key] = rollout
	}

	return &Manager{flags: out}
}

func parseRollout(value string) (Rollout, bool) {
	switch value {
	case "on", "true", "1":
		return Rollout{Percent: 100}, true
	case "off", "false", "0":
		return Rollout{}, true
	}
	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return Rollout{}, false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return Rollout{}, false
	}
	return Rollout{Percent: min(max(pct, 0), 100)}, true
}

// Enabled reports whether name is on for userID. Partial rollouts are
// deterministic per user and never include anonymous viewers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	rollout, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch {
	case rollout.Percent <= 0:
		return false
	case rollout.Percent >= 100:
		return true
	case userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < rollout.Percent
	}
}

// Names returns the configured flag names, sorted.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.flags))
	for name := range m.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw returns the configured flags in their canonical text form.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for k, v := range m.flags {
		out[k] = v.String()
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
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
