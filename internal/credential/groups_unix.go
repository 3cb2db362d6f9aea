//go:build unix

package credential

import (
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sys/unix"
)

// maxSavedGroups is the ceiling on the resolving process's own group
// count above which enumeration is declared unsupported. NGROUPS_MAX can
// be as high as 65536 on Linux; a saved set larger than that means the
// platform getgroups variant is not reporting the live set and the
// save/restore sequence below cannot be trusted.
const maxSavedGroups = 65536

// Syscall seams, overridden in tests.
var (
	getgroups  = unix.Getgroups
	setgroups  = unix.Setgroups
	initGroups = initgroupsEmulated
)

// enumerateGroups captures the target user's supplementary group list
// into uc.Gids. No primitive answers "which groups does user X belong
// to" portably, and the usual one cannot report how many groups exist
// before storage is allocated for them. So: save the resolving process's
// own groups, adopt the target's groups via initgroups, read the now
// current set back, and restore the saved set unconditionally. The group
// mutation is a process-wide side effect and must be invisible once this
// returns; a failed restore therefore overrides any earlier success.
func enumerateGroups(uc *Credential, logger *slog.Logger) error {
	saved, err := getgroups()
	if err != nil {
		logger.Error("getgroups failed", "error", err)
		return fmt.Errorf("getgroups: %w", err)
	}

	if len(saved) > maxSavedGroups {
		uc.Mode = GroupsFallback
		logger.Warn("group enumeration unsupported, deferring to initgroups at switch time",
			"saved_groups", len(saved))
		return nil
	}

	var enumErr error

	if err := initGroups(uc.User, int(uc.BaseGID)); err != nil {
		logger.Error("initgroups failed", "user", uc.User, "gid", uc.BaseGID, "error", err)
		enumErr = fmt.Errorf("initgroups %q: %w", uc.User, err)
	} else if cur, err := getgroups(); err != nil {
		logger.Error("getgroups failed", "error", err)
		enumErr = fmt.Errorf("getgroups: %w", err)
	} else {
		gids := make([]uint32, len(cur))
		for i, g := range cur {
			gids[i] = uint32(g)
		}
		uc.Gids = gids
		uc.Mode = GroupsDirect
	}

	if err := setgroups(saved); err != nil {
		logger.Error("restoring supplementary groups failed",
			"saved_groups", len(saved), "error", err)
		uc.Gids = nil
		uc.Mode = GroupsNone
		return fmt.Errorf("setgroups restore: %w", err)
	}

	return enumErr
}

// initgroupsEmulated adopts the group list of name plus baseGid, the
// moral equivalent of initgroups(3) built on the account directory.
func initgroupsEmulated(name string, baseGid int) error {
	u, err := lookupUser(name)
	if err != nil {
		return err
	}
	ids, err := u.GroupIds()
	if err != nil {
		return err
	}

	gids := []int{baseGid}
	for _, s := range ids {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		if n != baseGid {
			gids = append(gids, n)
		}
	}
	return setgroups(gids)
}
