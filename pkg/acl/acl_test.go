package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPOSIXRichRoundTrip(t *testing.T) {
	p := POSIXACL{Entries: []Entry{
		{Kind: EntryUserObj, Mask: 0x7},
		{Kind: EntryGroupObj, Mask: 0x5},
		{Kind: EntryOther, Mask: 0x4},
	}}
	r, err := FromPOSIX(p)
	require.NoError(t, err)

	back, err := r.ToPOSIX()
	require.NoError(t, err)

	require.Len(t, back.Entries, 3)
	assert.Equal(t, p.Entries[0].Mask, back.Entries[0].Mask)
	assert.Equal(t, p.Entries[1].Mask, back.Entries[1].Mask)
	assert.Equal(t, p.Entries[2].Mask, back.Entries[2].Mask)
}

func TestFromPOSIXWithNamedEntries(t *testing.T) {
	p := POSIXACL{Entries: []Entry{
		{Kind: EntryUserObj, Mask: 0x7},
		{Kind: EntryGroupObj, Mask: 0x5},
		{Kind: EntryOther, Mask: 0x4},
		{Kind: EntryUser, ID: 1000, Mask: 0x6},
		{Kind: EntryMask, Mask: 0x6},
	}}
	r, err := FromPOSIX(p)
	require.NoError(t, err)
	back, err := r.ToPOSIX()
	require.NoError(t, err)

	var found bool
	for _, e := range back.Entries {
		if e.Kind == EntryUser && e.ID == 1000 {
			found = true
			assert.Equal(t, Perm(0x6), e.Mask)
		}
	}
	assert.True(t, found, "expected named user entry to survive the round trip")
}

func TestToPOSIXAppliesDenyMask(t *testing.T) {
	r := RichACL{
		Aces: []Ace{
			{Type: AceAllow, ID: 42, Mask: posixToNFSv4(0x7)},
			{Type: AceDeny, ID: 42, Mask: posixToNFSv4(0x2)},
		},
	}
	p, err := r.ToPOSIX()
	require.NoError(t, err)
	for _, e := range p.Entries {
		if e.Kind == EntryUser && e.ID == 42 {
			assert.Equal(t, Perm(0x5), e.Mask) // read+execute, write denied
		}
	}
}
