package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverwriteMerge(t *testing.T) {
	assert := assert.New(t)

	allow, deny := Overwrite{Deny: PermSend | PermSpeak}.Merge(PermReact, 0)
	assert.Equal(PermReact, allow)
	assert.Equal(PermSend|PermSpeak, deny)

	allow, deny = Overwrite{Allow: PermSend | PermSpeak}.Merge(0, deny|PermReact)
	assert.Equal(PermSend|PermSpeak, allow)
	assert.Equal(PermReact, deny)
}

func TestPermissionString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("none", Permission(0).String())
	assert.Equal("send|react", (PermSend | PermReact).String())
	assert.True((PermSend | PermSpeak).Has(PermSpeak))
	assert.False(PermSend.Has(PermSend | PermSpeak))
}

func TestMockPlatform(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := NewMockPlatform()
	m.AddTenant("t1", "general")

	r, err := m.FindRole(ctx, "t1", "Muted")
	assert.NoError(err)
	assert.Nil(r)

	r, err = m.CreateRole(ctx, "t1", "Muted", 0)
	assert.NoError(err)
	assert.NoError(m.AssignRole(ctx, "t1", "u1", r.ID))
	assert.True(m.MemberHasRole("t1", "u1", "Muted"))

	members, err := m.MembersWithRole(ctx, "t1", r.ID)
	assert.NoError(err)
	assert.Equal([]string{"u1"}, members)

	m.DeleteRoleByName("t1", "Muted")
	assert.False(m.MemberHasRole("t1", "u1", "Muted"))
	assert.ErrorIs(m.AssignRole(ctx, "t1", "u1", r.ID), ErrNotFound)

	_, err = m.Channels(ctx, "missing")
	assert.ErrorIs(err, ErrNotFound)

	m.Failures["delete-message/general"] = errors.New("boom")
	assert.Error(m.DeleteMessage(ctx, "t1", "general", "m1"))
	assert.NoError(m.DeleteMessage(ctx, "t1", "random", "m2"))
	assert.Equal(2, m.CountCalls("delete-message", "t1"))
}
