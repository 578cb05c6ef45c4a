// Package pathmap virtualizes the guest's view of the host filesystem.
//
// A Table maps guest path prefixes to host directories. The special key "."
// stands for the guest's current directory, so a guest started with
//
//	t := pathmap.NewTable()
//	t.Set(".", "/srv/sandbox")
//
// that opens "notes.txt" touches /srv/sandbox/notes.txt on the host.
//
// Resolution walks the path's components from the left and stops at the
// first mapped prefix. It does not clean ".." components; callers that need
// containment must enforce it on the resolved host path.
package pathmap
