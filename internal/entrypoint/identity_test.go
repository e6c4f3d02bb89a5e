package entrypoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruciblehq/playground/internal/settings"
)

const (
	passwd = "root:x:0:0:root:/root:/bin/bash\nplayground:x:1000:1000::/home/playground:/bin/bash\n"
	group  = "root:x:0:\nplayground:x:1000:\nrust:x:1001:playground\n"
)

func identity(t *testing.T, uid int, set *[]Account) Identity {
	t.Helper()
	dir := t.TempDir()
	id := Identity{
		PasswdPath: filepath.Join(dir, "passwd"),
		GroupPath:  filepath.Join(dir, "group"),
		getuid:     func() int { return uid },
		setid: func(a Account) error {
			*set = append(*set, a)
			return nil
		},
	}
	os.WriteFile(id.PasswdPath, []byte(passwd), 0644)
	os.WriteFile(id.GroupPath, []byte(group), 0644)
	return id
}

func TestLookup(t *testing.T) {
	var set []Account
	id := identity(t, 0, &set)

	want := &Account{Name: "playground", Uid: 1000, Gid: 1000, Groups: []int{1001}, Home: "/home/playground"}
	for _, spec := range []string{"playground", "1000"} {
		got, err := id.Lookup(spec)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", spec, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Lookup(%q) mismatch (-want +got):\n%s", spec, diff)
		}
	}

	if _, err := id.Lookup("nobody"); err == nil {
		t.Fatal("unknown user resolved")
	}
}

func TestAssume(t *testing.T) {
	t.Run("root switches", func(t *testing.T) {
		var set []Account
		a, err := identity(t, 0, &set).assume("playground")
		if err != nil || a == nil || len(set) != 1 || set[0].Uid != 1000 {
			t.Fatalf("assume = %+v, %v; set = %+v", a, err, set)
		}
	})

	t.Run("already that user", func(t *testing.T) {
		var set []Account
		a, err := identity(t, 1000, &set).assume("playground")
		if err != nil || a != nil || len(set) != 0 {
			t.Fatalf("assume = %+v, %v; set = %+v", a, err, set)
		}
	})

	t.Run("unprivileged cannot switch", func(t *testing.T) {
		var set []Account
		if _, err := identity(t, 1001, &set).assume("playground"); err == nil || len(set) != 0 {
			t.Fatalf("err = %v, set = %+v", err, set)
		}
	})

	t.Run("credential failure", func(t *testing.T) {
		var set []Account
		id := identity(t, 0, &set)
		id.setid = func(Account) error { return errors.New("EPERM") }
		if _, err := id.assume("playground"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBootstrapSwitchesUser(t *testing.T) {
	f := newFixture(t)
	var set []Account
	f.opts.Identity = identity(t, 0, &set)
	f.opts.Environ = append(f.opts.Environ, settings.VarUser+"=playground")
	f.opts.Args = []string{"cargo"}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	if s.User == nil || s.User.Name != "playground" || len(set) != 1 {
		t.Fatalf("user = %+v, set = %+v", s.User, set)
	}
	if lookup(s.Env, "HOME") != "/home/playground" || lookup(s.Env, "USER") != "playground" {
		t.Fatalf("session env = %v", s.Env)
	}
}

func TestBootstrapKeepsUserOnLookupFailure(t *testing.T) {
	f := newFixture(t)
	var set []Account
	f.opts.Identity = identity(t, 0, &set)
	f.opts.Environ = append(f.opts.Environ, settings.VarUser+"=nobody")
	f.opts.Args = []string{"cargo"}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("unknown user failed the bootstrap: %v", err)
	}
	if s.User != nil || len(set) != 0 {
		t.Fatal("credentials changed for an unknown user")
	}
}
