package pathmap

import (
	"strings"
	"unicode/utf8"

	"github.com/wippyai/wasm-emscripten/errors"
)

// Components splits a slash-separated path the way the guest libc sees it:
// a leading "/" is the root component, a leading "." is kept as the current
// directory, empty and interior "." components are dropped, ".." is kept.
func Components(p string) []string {
	var out []string
	rest := p
	if strings.HasPrefix(rest, "/") {
		out = append(out, "/")
		rest = strings.TrimLeft(rest, "/")
	} else if rest == "." || strings.HasPrefix(rest, "./") {
		out = append(out, CurrentDir)
		rest = rest[1:]
	}
	for _, c := range strings.Split(rest, "/") {
		if c == "" || c == "." {
			continue
		}
		out = append(out, c)
	}
	return out
}

func push(prefix, component string) string {
	switch {
	case component == "/":
		return "/"
	case prefix == "":
		return component
	case strings.HasSuffix(prefix, "/"):
		return prefix + component
	default:
		return prefix + "/" + component
	}
}

// ResolveGuestPath maps a guest path to a host path through t.
//
// A single-component path is treated as relative to the current directory.
// Components are then accumulated left to right ("." then "./sandbox", or
// "a" then "a/b") and the first accumulated prefix that is a key in t wins:
// the remainder of the path is joined onto its host directory. A shorter
// mapped prefix therefore shadows a deeper one.
//
// ok is false when no prefix is mapped or the result contains NUL. raw must
// be valid UTF-8; anything else aborts the call.
func ResolveGuestPath(t *Table, raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		errors.Fatal(errors.InvalidUTF8(errors.PhaseResolve, []string{"path"}, raw))
	}
	p := string(raw)

	comps := Components(p)
	implicitCwd := false
	if len(comps) == 1 {
		comps = append([]string{CurrentDir}, comps...)
		implicitCwd = true
	}

	var prefix string
	for i, c := range comps {
		prefix = push(prefix, c)
		host, ok := t.Get(prefix)
		if !ok {
			continue
		}

		var rest string
		if implicitCwd {
			rest = p
		} else {
			rest = strings.Join(comps[i+1:], "/")
		}
		resolved := join(host, rest)
		if strings.IndexByte(resolved, 0) >= 0 {
			return "", false
		}
		return resolved, true
	}
	return "", false
}

// join appends rest to dir. An absolute rest stays under dir.
func join(dir, rest string) string {
	rest = strings.TrimLeft(rest, "/")
	if rest == "" {
		return dir
	}
	if strings.HasSuffix(dir, "/") {
		return dir + rest
	}
	return dir + "/" + rest
}

// CurrentDirectory returns the guest's view of the current directory: the
// "." mapping when present, otherwise the host working directory, itself
// remapped when it is a key of t. ok is false only when getwd fails.
func CurrentDirectory(t *Table, getwd func() (string, error)) (string, bool) {
	if dir, ok := t.Get(CurrentDir); ok {
		return dir, true
	}
	cwd, err := getwd()
	if err != nil {
		return "", false
	}
	if dir, ok := t.Get(cwd); ok {
		return dir, true
	}
	return cwd, true
}
