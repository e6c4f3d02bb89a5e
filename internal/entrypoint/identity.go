package entrypoint

import (
	"fmt"
	"os"
	"syscall"

	"github.com/moby/sys/user"
)

// The user a session runs as.
type Account struct {
	Name   string
	Uid    int
	Gid    int
	Groups []int
	Home   string
}

// Resolves user specs against the container's account database and
// switches the process credentials. Zero values use the system files and
// the real credential calls.
type Identity struct {
	PasswdPath string // Defaults to /etc/passwd.
	GroupPath  string // Defaults to /etc/group.

	getuid func() int
	setid  func(Account) error
}

// Resolves spec ("name", "uid" or "name:group") to an account.
func (id Identity) Lookup(spec string) (*Account, error) {
	passwd, group := id.PasswdPath, id.GroupPath
	if passwd == "" {
		passwd = "/etc/passwd"
	}
	if group == "" {
		group = "/etc/group"
	}

	defaults := &user.ExecUser{Home: "/"}
	eu, err := user.GetExecUserPath(spec, defaults, passwd, group)
	if err != nil {
		return nil, fmt.Errorf("resolve user %q: %w", spec, err)
	}

	name := spec
	matches, err := user.ParsePasswdFileFilter(passwd, func(u user.User) bool { return u.Uid == eu.Uid })
	if err == nil && len(matches) > 0 {
		name = matches[0].Name
	}
	return &Account{
		Name:   name,
		Uid:    eu.Uid,
		Gid:    eu.Gid,
		Groups: eu.Sgids,
		Home:   eu.Home,
	}, nil
}

// Switches to spec. Returns nil without error when the process already
// runs as that user. Only root can switch.
func (id Identity) assume(spec string) (*Account, error) {
	account, err := id.Lookup(spec)
	if err != nil {
		return nil, err
	}

	getuid := id.getuid
	if getuid == nil {
		getuid = os.Getuid
	}
	uid := getuid()
	if uid == account.Uid {
		return nil, nil
	}
	if uid != 0 {
		return nil, fmt.Errorf("switching to %q requires root", spec)
	}

	setid := id.setid
	if setid == nil {
		setid = setCredentials
	}
	if err := setid(*account); err != nil {
		return nil, fmt.Errorf("switch to %q: %w", spec, err)
	}
	return account, nil
}

// Drops to the account's credentials. The uid is set last.
func setCredentials(a Account) error {
	groups := a.Groups
	if len(groups) == 0 {
		groups = []int{a.Gid}
	}
	if err := syscall.Setgroups(groups); err != nil {
		return err
	}
	if err := syscall.Setgid(a.Gid); err != nil {
		return err
	}
	return syscall.Setuid(a.Uid)
}
