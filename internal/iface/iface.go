// Package iface provides versioned interface identifiers for pluggable
// algorithm implementations (ciphers and name codecs).
//
// The versioning scheme follows libtool conventions: an implementation at
// Current=C with Age=A supports every interface revision in [C-A, C].
// Files written by an older codec revision therefore stay readable as long
// as the installed implementation's age covers that revision.
package iface

import "fmt"

// Iface identifies one revision of a named algorithm interface.
type Iface struct {
	Name     string
	Current  int
	Revision int
	Age      int
}

// New returns an Iface value. Convenience for static algorithm tables.
func New(name string, current, revision, age int) Iface {
	return Iface{Name: name, Current: current, Revision: revision, Age: age}
}

// Implements reports whether an implementation declaring "i" can serve a
// requester that asks for "req". Only the requester's Current matters;
// Revision is informational.
func (i Iface) Implements(req Iface) bool {
	if i.Name != req.Name {
		return false
	}
	return req.Current >= i.Current-i.Age && req.Current <= i.Current
}

func (i Iface) String() string {
	return fmt.Sprintf("%s(%d:%d:%d)", i.Name, i.Current, i.Revision, i.Age)
}
