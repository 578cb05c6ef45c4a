package host

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"
)

// DefaultPasswdFile is the password database read by System.
const DefaultPasswdFile = "/etc/passwd"

// ParsePasswd scans a passwd(5) database for uid. Malformed lines are
// skipped.
func ParsePasswd(r io.Reader, uid uint32) (*Passwd, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Split(line, ":")
		if len(f) != 7 {
			continue
		}
		id, err := strconv.ParseUint(f[2], 10, 32)
		if err != nil || uint32(id) != uid {
			continue
		}
		gid, err := strconv.ParseUint(f[3], 10, 32)
		if err != nil {
			continue
		}
		return &Passwd{
			Name:   f[0],
			Passwd: f[1],
			UID:    uid,
			GID:    uint32(gid),
			Gecos:  f[4],
			Dir:    f[5],
			Shell:  f[6],
		}, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSuchUser
}

// lookupUID reads file first and falls back to os/user, which also sees
// NSS sources such as LDAP when cgo is enabled. The fallback has no
// password or shell field.
func lookupUID(file string, uid uint32) (*Passwd, error) {
	if f, err := os.Open(file); err == nil {
		pw, perr := ParsePasswd(f, uid)
		f.Close()
		if perr == nil {
			return pw, nil
		}
	}

	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		var unknown user.UnknownUserIdError
		if errors.As(err, &unknown) {
			return nil, ErrNoSuchUser
		}
		return nil, err
	}
	gid, _ := strconv.ParseUint(u.Gid, 10, 32)
	return &Passwd{
		Name:  u.Username,
		UID:   uid,
		GID:   uint32(gid),
		Gecos: u.Name,
		Dir:   u.HomeDir,
	}, nil
}
