package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NebulousLabs/errors"
	"github.com/lizardfs/dataplane/pkg/acl"
)

// ErrMalformedACL is returned by the ACL parsers below on any syntax error.
var ErrMalformedACL = errors.New("wire: malformed ACL string")

// EncodePOSIXACL renders a POSIXACL as `"A" || octal(user,group,other) ||
// ("/" entry)*` per §6.
func EncodePOSIXACL(p acl.POSIXACL) string {
	var user, group, other acl.Perm
	var rest []string
	for _, e := range p.Entries {
		switch e.Kind {
		case acl.EntryUserObj:
			user = e.Mask
		case acl.EntryGroupObj:
			group = e.Mask
		case acl.EntryOther:
			other = e.Mask
		case acl.EntryUser:
			rest = append(rest, fmt.Sprintf("u:%d:%o", e.ID, e.Mask))
		case acl.EntryGroup:
			rest = append(rest, fmt.Sprintf("g:%d:%o", e.ID, e.Mask))
		case acl.EntryMask:
			rest = append(rest, fmt.Sprintf("m::%o", e.Mask))
		}
	}
	s := fmt.Sprintf("A%o%o%o", user, group, other)
	for _, r := range rest {
		s += "/" + r
	}
	return s
}

// DecodePOSIXACL parses the form EncodePOSIXACL produces.
func DecodePOSIXACL(s string) (acl.POSIXACL, error) {
	if len(s) < 4 || s[0] != 'A' {
		return acl.POSIXACL{}, ErrMalformedACL
	}
	parts := strings.Split(s[1:], "/")
	if len(parts[0]) != 3 {
		return acl.POSIXACL{}, ErrMalformedACL
	}
	var p acl.POSIXACL
	for i, kind := range []acl.EntryType{acl.EntryUserObj, acl.EntryGroupObj, acl.EntryOther} {
		mask, err := strconv.ParseUint(string(parts[0][i]), 8, 8)
		if err != nil {
			return acl.POSIXACL{}, ErrMalformedACL
		}
		p.Entries = append(p.Entries, acl.Entry{Kind: kind, Mask: acl.Perm(mask)})
	}
	for _, entry := range parts[1:] {
		fields := strings.Split(entry, ":")
		if len(fields) != 3 {
			return acl.POSIXACL{}, ErrMalformedACL
		}
		mask, err := strconv.ParseUint(fields[2], 8, 8)
		if err != nil {
			return acl.POSIXACL{}, ErrMalformedACL
		}
		switch fields[0] {
		case "u":
			id, _ := strconv.ParseUint(fields[1], 10, 32)
			p.Entries = append(p.Entries, acl.Entry{Kind: acl.EntryUser, ID: uint32(id), Mask: acl.Perm(mask)})
		case "g":
			id, _ := strconv.ParseUint(fields[1], 10, 32)
			p.Entries = append(p.Entries, acl.Entry{Kind: acl.EntryGroup, ID: uint32(id), Mask: acl.Perm(mask)})
		case "m":
			p.Entries = append(p.Entries, acl.Entry{Kind: acl.EntryMask, Mask: acl.Perm(mask)})
		default:
			return acl.POSIXACL{}, ErrMalformedACL
		}
	}
	return p, nil
}

// EncodeRichACL renders a RichACL as `flags || "|" || owner_mask || "|" ||
// group_mask || "|" || other_mask || "|" || (mask ":" flags ":" type ":"
// id "/")*` per §6.
func EncodeRichACL(r acl.RichACL) string {
	s := fmt.Sprintf("0|%d|%d|%d|", r.OwnerMask, r.GroupMask, r.OtherMask)
	for _, ace := range r.Aces {
		s += fmt.Sprintf("%d:%d:%d:%d/", ace.Mask, ace.Flags, ace.Type, ace.ID)
	}
	return s
}

// DecodeRichACL parses the form EncodeRichACL produces.
func DecodeRichACL(s string) (acl.RichACL, error) {
	fields := strings.Split(s, "|")
	if len(fields) != 5 {
		return acl.RichACL{}, ErrMalformedACL
	}
	owner, err1 := strconv.ParseUint(fields[1], 10, 32)
	group, err2 := strconv.ParseUint(fields[2], 10, 32)
	other, err3 := strconv.ParseUint(fields[3], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return acl.RichACL{}, ErrMalformedACL
	}
	r := acl.RichACL{OwnerMask: uint32(owner), GroupMask: uint32(group), OtherMask: uint32(other)}
	for _, aceStr := range strings.Split(fields[4], "/") {
		if aceStr == "" {
			continue
		}
		parts := strings.Split(aceStr, ":")
		if len(parts) != 4 {
			return acl.RichACL{}, ErrMalformedACL
		}
		mask, e1 := strconv.ParseUint(parts[0], 10, 32)
		flags, e2 := strconv.ParseUint(parts[1], 10, 8)
		typ, e3 := strconv.ParseUint(parts[2], 10, 8)
		id, e4 := strconv.ParseUint(parts[3], 10, 32)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return acl.RichACL{}, ErrMalformedACL
		}
		r.Aces = append(r.Aces, acl.Ace{
			Mask:  uint32(mask),
			Flags: acl.InheritFlags(flags),
			Type:  acl.AceType(typ),
			ID:    uint32(id),
		})
	}
	return r, nil
}
