// Package credential resolves system account names into numeric
// identities and applies them to the current process. Resolution runs in
// the coordinating process ahead of spawning, so directory latency never
// stalls worker startup; the switch itself runs once in the freshly
// created process, before any role code.
package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"
)

// ErrNotFound marks a user or group name absent from the account
// directory, as opposed to the directory query itself failing.
var ErrNotFound = errors.New("not found")

// Mode says how the supplementary group list was obtained.
type Mode uint8

const (
	// GroupsNone: not enumerated; the resolving process lacked the
	// privilege to query another identity's groups.
	GroupsNone Mode = iota

	// GroupsDirect: Gids holds the target user's supplementary groups,
	// captured by the save/restore enumeration in groups_unix.go.
	GroupsDirect

	// GroupsFallback: enumeration was unsupported (the saved set
	// exceeded the hard maximum); Apply falls back to initgroups in
	// the target process.
	GroupsFallback
)

func (m Mode) String() string {
	switch m {
	case GroupsDirect:
		return "direct"
	case GroupsFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Credential is a resolved reduced-privilege identity.
type Credential struct {
	User    string
	UID     uint32
	BaseGID uint32
	Gids    []uint32 // supplementary groups; nil unless Mode is GroupsDirect
	Mode    Mode
}

// Lookup seams, overridden in tests.
var (
	lookupUser  = user.Lookup
	lookupGroup = user.LookupGroup
	geteuid     = os.Geteuid
)

// Resolve looks up name (and, if non-empty, group, which overrides the
// account's primary group) in the system directory. When the resolving
// process is super-user it also enumerates the target's supplementary
// groups; otherwise Gids stays absent and Apply uses its same-process
// fallback.
func Resolve(name, group string, logger *slog.Logger) (*Credential, error) {
	uc := &Credential{User: name}

	u, err := lookupUser(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			logger.Error("user not found", "user", name)
			return nil, fmt.Errorf("user %q: %w", name, ErrNotFound)
		}
		logger.Error("user lookup failed", "user", name, "error", err)
		return nil, fmt.Errorf("lookup user %q: %w", name, err)
	}

	uc.UID, err = parseID(u.Uid)
	if err != nil {
		return nil, fmt.Errorf("user %q: uid: %w", name, err)
	}
	uc.BaseGID, err = parseID(u.Gid)
	if err != nil {
		return nil, fmt.Errorf("user %q: gid: %w", name, err)
	}

	if group != "" {
		g, err := lookupGroup(group)
		if err != nil {
			var unknown user.UnknownGroupError
			if errors.As(err, &unknown) {
				logger.Error("group not found", "group", group)
				return nil, fmt.Errorf("group %q: %w", group, ErrNotFound)
			}
			logger.Error("group lookup failed", "group", group, "error", err)
			return nil, fmt.Errorf("lookup group %q: %w", group, err)
		}
		uc.BaseGID, err = parseID(g.Gid)
		if err != nil {
			return nil, fmt.Errorf("group %q: gid: %w", group, err)
		}
	}

	// Enumerating another identity's groups is itself privileged.
	if geteuid() == 0 {
		if err := enumerateGroups(uc, logger); err != nil {
			return nil, err
		}
	}

	return uc, nil
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("non-numeric id %q: %w", s, err)
	}
	return uint32(n), nil
}
