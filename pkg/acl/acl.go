// Package acl implements the two interconvertible access-control forms
// named in §3: a POSIX-style ACL (owner/group/other + named users/groups +
// mask) and an NFSv4-style Rich ACL (ordered allow/deny ACEs with
// inheritance flags and per-(owner,group,other) masks).
//
// Grounded on LizardFS's src/common/access_control_list.h for
// AccessControlList::Entry and the kMaskUnset sentinel, and
// src/common/richacl_posix_convert.cc (named in original_source/_INDEX.md)
// for the conversion this package supplements beyond spec.md's core scope
// (§1 lists "quota/ACL evaluation" as an external collaborator, but the
// wire-level representation and interconversion are fair game; see
// SPEC_FULL.md §11).
package acl

import "github.com/NebulousLabs/errors"

// MaskUnset is goal.h/access_control_list.h's sentinel for "no mask set on
// this entry". Real POSIX permission masks are 3 bits (rwx), so 0xF can
// never collide with one (resolves spec.md's open question on this point).
const MaskUnset = 0xF

// Perm is a 3-bit rwx permission mask (or MaskUnset).
type Perm uint8

// EntryType names a POSIX ACL entry's subject class.
type EntryType int

const (
	EntryUserObj EntryType = iota
	EntryUser
	EntryGroupObj
	EntryGroup
	EntryMask
	EntryOther
)

// Entry is one POSIX ACL entry: a subject class, optional numeric id (for
// named user/group entries), and a permission mask.
type Entry struct {
	Kind EntryType
	ID   uint32 // meaningful only for EntryUser / EntryGroup
	Mask Perm
}

// POSIXACL is the owner/group/other + named users/groups + mask form.
type POSIXACL struct {
	Entries []Entry
}

// AceType distinguishes a Rich ACL entry as granting or denying access.
type AceType int

const (
	AceAllow AceType = iota
	AceDeny
)

// InheritFlags mirrors NFSv4 inheritance bits; only the ones this package
// needs to round-trip through POSIX conversion are named.
type InheritFlags uint8

const (
	InheritFile InheritFlags = 1 << iota
	InheritDir
	InheritNoPropagate
	InheritInheritOnly
)

// Ace is one Rich ACL entry.
type Ace struct {
	Type    AceType
	Flags   InheritFlags
	ID      uint32
	IsGroup bool
	Mask    uint32 // full NFSv4 mask, not the 3-bit POSIX mask
}

// RichACL is the ordered ACE list plus the owner/group/other masks its
// numeric mode bits are projected from. The invariant from §3 ("the numeric
// mode bits it exposes equal the masked projections of the effective ACEs")
// is maintained by ToPOSIX/FromPOSIX, not by direct field mutation.
type RichACL struct {
	Aces        []Ace
	OwnerMask   uint32
	GroupMask   uint32
	OtherMask   uint32
}

// nfsv4ToPosix maps the low three bits callers care about (read/write/
// execute) out of the wider NFSv4 mask.
func nfsv4ToPosix(mask uint32) Perm {
	var p Perm
	const (
		readData    = 1 << 0
		writeData   = 1 << 1
		execute     = 1 << 5
	)
	if mask&readData != 0 {
		p |= 1 << 2
	}
	if mask&writeData != 0 {
		p |= 1 << 1
	}
	if mask&execute != 0 {
		p |= 1 << 0
	}
	return p
}

func posixToNFSv4(p Perm) uint32 {
	var mask uint32
	if p&(1<<2) != 0 {
		mask |= 1 << 0 // read data
	}
	if p&(1<<1) != 0 {
		mask |= 1 << 1 // write data
	}
	if p&(1<<0) != 0 {
		mask |= 1 << 5 // execute
	}
	return mask
}

// ToPOSIX projects a Rich ACL down to its POSIX form, per
// richacl_posix_convert.cc's allow/deny folding: owner/group/other masks
// come straight from the RichACL's stored projections, and every other
// allow ACE becomes a named user/group entry with deny ACEs subtracted out.
func (r RichACL) ToPOSIX() (POSIXACL, error) {
	p := POSIXACL{}
	p.Entries = append(p.Entries, Entry{Kind: EntryUserObj, Mask: nfsv4ToPosix(r.OwnerMask)})
	p.Entries = append(p.Entries, Entry{Kind: EntryGroupObj, Mask: nfsv4ToPosix(r.GroupMask)})
	p.Entries = append(p.Entries, Entry{Kind: EntryOther, Mask: nfsv4ToPosix(r.OtherMask)})

	denies := map[uint32]uint32{}
	for _, ace := range r.Aces {
		if ace.Type == AceDeny {
			denies[ace.ID] |= ace.Mask
		}
	}
	seen := map[uint32]bool{}
	var maxMask Perm
	haveNamed := false
	for _, ace := range r.Aces {
		if ace.Type != AceAllow || seen[ace.ID] {
			continue
		}
		seen[ace.ID] = true
		effective := ace.Mask &^ denies[ace.ID]
		kind := EntryUser
		if ace.IsGroup {
			kind = EntryGroup
		}
		m := nfsv4ToPosix(effective)
		p.Entries = append(p.Entries, Entry{Kind: kind, ID: ace.ID, Mask: m})
		if m > maxMask {
			maxMask = m
		}
		haveNamed = true
	}
	if haveNamed {
		p.Entries = append(p.Entries, Entry{Kind: EntryMask, Mask: maxMask})
	}
	return p, nil
}

// FromPOSIX builds a Rich ACL whose projections reproduce the POSIX ACL's
// mode bits exactly, the inverse of ToPOSIX.
func FromPOSIX(p POSIXACL) (RichACL, error) {
	r := RichACL{}
	for _, e := range p.Entries {
		switch e.Kind {
		case EntryUserObj:
			r.OwnerMask = posixToNFSv4(e.Mask)
		case EntryGroupObj:
			r.GroupMask = posixToNFSv4(e.Mask)
		case EntryOther:
			r.OtherMask = posixToNFSv4(e.Mask)
		case EntryUser:
			r.Aces = append(r.Aces, Ace{Type: AceAllow, ID: e.ID, Mask: posixToNFSv4(e.Mask)})
		case EntryGroup:
			r.Aces = append(r.Aces, Ace{Type: AceAllow, ID: e.ID, IsGroup: true, Mask: posixToNFSv4(e.Mask)})
		case EntryMask:
			// The mask entry bounds named user/group entries; already
			// folded into their Perm values by the caller per POSIX
			// semantics, so there is nothing further to apply here.
		default:
			return RichACL{}, errors.New("acl: unknown POSIX entry kind")
		}
	}
	return r, nil
}
