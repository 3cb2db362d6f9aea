package credential

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/user"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeUser(name, uid, gid string) *user.User {
	return &user.User{Username: name, Uid: uid, Gid: gid}
}

func TestResolveUserNotFound(t *testing.T) {
	origUser := lookupUser
	defer func() { lookupUser = origUser }()
	lookupUser = func(name string) (*user.User, error) {
		return nil, user.UnknownUserError(name)
	}

	_, err := Resolve("ghost", "", discardLogger())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveUserLookupFailed(t *testing.T) {
	origUser := lookupUser
	defer func() { lookupUser = origUser }()
	lookupUser = func(name string) (*user.User, error) {
		return nil, fmt.Errorf("nss timeout")
	}

	_, err := Resolve("worker", "", discardLogger())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("directory failure must not be reported as not-found")
	}
}

func TestResolveBasic(t *testing.T) {
	origUser, origEuid := lookupUser, geteuid
	defer func() { lookupUser, geteuid = origUser, origEuid }()
	lookupUser = func(name string) (*user.User, error) {
		return fakeUser(name, "1001", "1002"), nil
	}
	geteuid = func() int { return 1000 }

	uc, err := Resolve("worker", "", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if uc.UID != 1001 || uc.BaseGID != 1002 {
		t.Fatalf("uid=%d gid=%d, want 1001/1002", uc.UID, uc.BaseGID)
	}
	if uc.Mode != GroupsNone || uc.Gids != nil {
		t.Fatal("non-root resolver must not enumerate groups")
	}
}

func TestResolveGroupOverride(t *testing.T) {
	origUser, origGroup, origEuid := lookupUser, lookupGroup, geteuid
	defer func() { lookupUser, lookupGroup, geteuid = origUser, origGroup, origEuid }()
	lookupUser = func(name string) (*user.User, error) {
		return fakeUser(name, "1001", "1002"), nil
	}
	lookupGroup = func(name string) (*user.Group, error) {
		return &user.Group{Name: name, Gid: "2000"}, nil
	}
	geteuid = func() int { return 1000 }

	uc, err := Resolve("worker", "staff", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if uc.BaseGID != 2000 {
		t.Fatalf("gid = %d, want override 2000", uc.BaseGID)
	}
}

func TestResolveGroupNotFound(t *testing.T) {
	origUser, origGroup := lookupUser, lookupGroup
	defer func() { lookupUser, lookupGroup = origUser, origGroup }()
	lookupUser = func(name string) (*user.User, error) {
		return fakeUser(name, "1001", "1002"), nil
	}
	lookupGroup = func(name string) (*user.Group, error) {
		return nil, user.UnknownGroupError(name)
	}

	_, err := Resolve("worker", "nosuch", discardLogger())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveNonNumericID(t *testing.T) {
	origUser := lookupUser
	defer func() { lookupUser = origUser }()
	lookupUser = func(name string) (*user.User, error) {
		return fakeUser(name, "S-1-5-21", "0"), nil
	}

	if _, err := Resolve("worker", "", discardLogger()); err == nil {
		t.Fatal("expected error for non-numeric uid")
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{GroupsNone, "none"},
		{GroupsDirect, "direct"},
		{GroupsFallback, "fallback"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
