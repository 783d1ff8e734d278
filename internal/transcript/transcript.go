package transcript

import (
	"strings"
	"time"
	"unicode/utf8"
)

// #region windows

const (
	// DetectionWindow bounds the turns the detector sees.
	DetectionWindow = 10
	// FollowUpWindow bounds the turns used when grounding generation.
	FollowUpWindow = 5
)

// #endregion

// #region role

// Role identifies who spoke a turn.
type Role string

const (
	RoleSelf  Role = "self"
	RoleOther Role = "other"
)

// ParseRole maps stored sender types onto the two roles.
// "self" and "user" are the local side, everything else is the counterpart.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self", "user", "me":
		return RoleSelf
	default:
		return RoleOther
	}
}

// #endregion

// #region turn

// Turn is one immutable utterance.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is a chronologically ordered list of turns.
type Transcript []Turn

// #endregion

// #region ops

// Tail returns the last n turns. n <= 0 returns the whole transcript.
func (t Transcript) Tail(n int) Transcript {
	if n <= 0 || len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}

// IsEmpty reports whether there is no turn with non-blank text.
func (t Transcript) IsEmpty() bool {
	for _, turn := range t {
		if strings.TrimSpace(turn.Text) != "" {
			return false
		}
	}
	return true
}

// Render produces the "role: text" lines the classifiers consume.
func (t Transcript) Render() string {
	lines := make([]string, 0, len(t))
	for _, turn := range t {
		lines = append(lines, string(turn.Role)+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

// FromLines builds a transcript from pre-rendered "role: text" lines.
// Lines without a recognized prefix are attributed to the counterpart.
func FromLines(lines ...string) Transcript {
	out := make(Transcript, 0, len(lines))
	for _, line := range lines {
		role, text := RoleOther, line
		if head, rest, ok := strings.Cut(line, ":"); ok {
			switch strings.TrimSpace(head) {
			case string(RoleSelf):
				role, text = RoleSelf, strings.TrimSpace(rest)
			case string(RoleOther):
				text = strings.TrimSpace(rest)
			}
		}
		out = append(out, Turn{Role: role, Text: text})
	}
	return out
}

// LastChars returns at most n trailing bytes of s, trimmed to a rune boundary.
func LastChars(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// #endregion
