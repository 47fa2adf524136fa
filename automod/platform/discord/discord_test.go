package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/phantomguard/warden/automod/platform"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestToDiscord(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(int64(0), toDiscord(0))
	assert.Equal(int64(discordgo.PermissionSendMessages|discordgo.PermissionVoiceSpeak), toDiscord(platform.PermSend|platform.PermSpeak))
	assert.Equal(int64(discordgo.PermissionAddReactions), toDiscord(platform.PermReact))
}

func TestMergeOverwrite(t *testing.T) {
	assert := assert.New(t)

	// unrelated bits survive a lockdown and the following unlock
	var allow int64 = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	var deny int64 = discordgo.PermissionAttachFiles
	allow, deny = mergeOverwrite(allow, deny, platform.Overwrite{Deny: platform.PermSend | platform.PermSpeak})
	assert.Equal(int64(discordgo.PermissionViewChannel), allow)
	assert.Equal(int64(discordgo.PermissionAttachFiles|discordgo.PermissionSendMessages|discordgo.PermissionVoiceSpeak), deny)

	allow, deny = mergeOverwrite(allow, deny, platform.Overwrite{Allow: platform.PermSend | platform.PermSpeak})
	assert.Equal(int64(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages|discordgo.PermissionVoiceSpeak), allow)
	assert.Equal(int64(discordgo.PermissionAttachFiles), deny)
}

func TestWrapErr(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(wrapErr("op", nil))

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	assert.ErrorIs(wrapErr("assigning role", notFound), platform.ErrNotFound)

	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	err := wrapErr("assigning role", forbidden)
	assert.Error(err)
	assert.False(errors.Is(err, platform.ErrNotFound))
}

func TestAuditEmbed(t *testing.T) {
	assert := assert.New(t)

	e := auditEmbed(platform.AuditRecord{
		Title:      "Shadowbanned message",
		AuthorID:   "123",
		AuthorName: "spammer",
		ChannelID:  "456",
		Content:    "free nitro",
		Time:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	assert.Equal("Shadowbanned message", e.Title)
	assert.Contains(e.Description, "spammer (123)")
	assert.Contains(e.Description, "free nitro")
	assert.Equal("2024-05-01T12:00:00Z", e.Timestamp)
	assert.Equal("<#456>", e.Fields[0].Value)
}
