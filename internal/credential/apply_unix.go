//go:build unix

package credential

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

var (
	setgid = unix.Setgid
	setuid = unix.Setuid
)

// Apply switches the current process to uc. Called at most once per
// process, before any role code runs. The order is fixed: primary group,
// supplementary groups, then user id — once the user id drops, the
// process may no longer be allowed to change groups. Any failing step
// aborts; the caller must treat failure as fatal, since a partially
// applied identity is worse than no switch at all.
func Apply(uc *Credential, logger *slog.Logger) error {
	logger.Debug("applying credential",
		"user", uc.User, "uid", uc.UID, "gid", uc.BaseGID, "groups_mode", uc.Mode.String())

	if err := setgid(int(uc.BaseGID)); err != nil {
		logger.Error("setgid failed", "gid", uc.BaseGID, "error", err)
		return fmt.Errorf("setgid(%d): %w", uc.BaseGID, err)
	}

	if uc.Gids != nil {
		gids := make([]int, len(uc.Gids))
		for i, g := range uc.Gids {
			gids[i] = int(g)
		}
		if err := setgroups(gids); err != nil {
			logger.Error("setgroups failed", "groups", len(gids), "error", err)
			return fmt.Errorf("setgroups(%d): %w", len(gids), err)
		}
	} else {
		// Groups were never enumerated, or enumeration was declared
		// unsupported: adopt them in-process instead.
		if err := initGroups(uc.User, int(uc.BaseGID)); err != nil {
			logger.Error("initgroups failed", "user", uc.User, "gid", uc.BaseGID, "error", err)
			return fmt.Errorf("initgroups %q: %w", uc.User, err)
		}
	}

	if err := setuid(int(uc.UID)); err != nil {
		logger.Error("setuid failed", "uid", uc.UID, "error", err)
		return fmt.Errorf("setuid(%d): %w", uc.UID, err)
	}

	return nil
}
