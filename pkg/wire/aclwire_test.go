package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/lizardfs/dataplane/pkg/acl"
)

func TestPOSIXACLWireRoundTrip(t *testing.T) {
	p := acl.POSIXACL{Entries: []acl.Entry{
		{Kind: acl.EntryUserObj, Mask: 7},
		{Kind: acl.EntryGroupObj, Mask: 5},
		{Kind: acl.EntryOther, Mask: 4},
		{Kind: acl.EntryUser, ID: 1000, Mask: 6},
		{Kind: acl.EntryMask, Mask: 6},
	}}
	s := EncodePOSIXACL(p)
	back, err := DecodePOSIXACL(s)
	require.NoError(t, err)
	require.Len(t, back.Entries, 5)
	assert.Equal(t, p.Entries[0].Mask, back.Entries[0].Mask)
	assert.Equal(t, p.Entries[3].ID, back.Entries[3].ID)
}

func TestDecodePOSIXACLRejectsMalformed(t *testing.T) {
	_, err := DecodePOSIXACL("not-an-acl")
	assert.ErrorIs(t, err, ErrMalformedACL)
}

func TestRichACLWireRoundTrip(t *testing.T) {
	r := acl.RichACL{
		OwnerMask: 35, GroupMask: 4, OtherMask: 1,
		Aces: []acl.Ace{
			{Type: acl.AceAllow, Flags: acl.InheritDir, ID: 1000, Mask: 6},
			{Type: acl.AceDeny, ID: 1000, Mask: 2},
		},
	}
	s := EncodeRichACL(r)
	back, err := DecodeRichACL(s)
	require.NoError(t, err)
	assert.Equal(t, r.OwnerMask, back.OwnerMask)
	require.Len(t, back.Aces, 2)
	assert.Equal(t, r.Aces[0].ID, back.Aces[0].ID)
	assert.Equal(t, r.Aces[1].Mask, back.Aces[1].Mask)
}

func TestDecodeRichACLRejectsMalformed(t *testing.T) {
	_, err := DecodeRichACL("0|1|2")
	assert.ErrorIs(t, err, ErrMalformedACL)
}
