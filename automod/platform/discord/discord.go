// Platform implementation backed by a discordgo session. Tenants are guilds; the everyone role of a guild shares the guild's ID.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phantomguard/warden/automod/platform"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

type Platform struct {
	Session *discordgo.Session
	Logger  *slog.Logger

	// throttles outbound REST calls, on top of discordgo's own per-route buckets
	limiter *rate.Limiter
}

var _ platform.Platform = (*Platform)(nil)

// Creates a platform over an already configured (not necessarily opened) session. rps is the sustained outbound request rate.
func NewPlatform(session *discordgo.Session, logger *slog.Logger, rps float64) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		Session: session,
		Logger:  logger.With("component", "discord"),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// Translates managed permission bits to discord permission bits.
func toDiscord(p platform.Permission) int64 {
	var out int64
	if p.Has(platform.PermSend) {
		out |= discordgo.PermissionSendMessages
	}
	if p.Has(platform.PermSpeak) {
		out |= discordgo.PermissionVoiceSpeak
	}
	if p.Has(platform.PermReact) {
		out |= discordgo.PermissionAddReactions
	}
	return out
}

// Applies a managed overwrite on top of an existing discord overwrite, leaving all other bits alone.
func mergeOverwrite(allow, deny int64, ow platform.Overwrite) (int64, int64) {
	a := toDiscord(ow.Allow)
	d := toDiscord(ow.Deny)
	return (allow &^ d) | a, (deny &^ a) | d
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", op, platform.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (d *Platform) wait(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

func (d *Platform) Tenants(ctx context.Context) ([]string, error) {
	d.Session.State.RLock()
	defer d.Session.State.RUnlock()
	out := make([]string, 0, len(d.Session.State.Guilds))
	for _, g := range d.Session.State.Guilds {
		out = append(out, g.ID)
	}
	return out, nil
}

func (d *Platform) Channels(ctx context.Context, tenant string) ([]string, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	chans, err := d.Session.GuildChannels(tenant, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapErr("listing channels", err)
	}
	out := make([]string, 0, len(chans))
	for _, ch := range chans {
		out = append(out, ch.ID)
	}
	return out, nil
}

func (d *Platform) FindRole(ctx context.Context, tenant, name string) (*platform.Role, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	roles, err := d.Session.GuildRoles(tenant, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapErr("listing roles", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return &platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return nil, nil
}

func (d *Platform) CreateRole(ctx context.Context, tenant, name string, perms platform.Permission) (*platform.Role, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	p := toDiscord(perms)
	r, err := d.Session.GuildRoleCreate(tenant, &discordgo.RoleParams{
		Name:        name,
		Permissions: &p,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason("PhantomGuard enforcement role"))
	if err != nil {
		return nil, wrapErr("creating role", err)
	}
	return &platform.Role{ID: r.ID, Name: r.Name}, nil
}

func (d *Platform) AssignRole(ctx context.Context, tenant, user, roleID string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	err := d.Session.GuildMemberRoleAdd(tenant, user, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason("PhantomGuard automatic escalation"))
	return wrapErr("assigning role", err)
}

func (d *Platform) RemoveRole(ctx context.Context, tenant, user, roleID string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	err := d.Session.GuildMemberRoleRemove(tenant, user, roleID, discordgo.WithContext(ctx))
	return wrapErr("removing role", err)
}

// page size of the guild member listing endpoint
var memberPageSize = 1000

func (d *Platform) MembersWithRole(ctx context.Context, tenant, roleID string) ([]string, error) {
	out := []string{}
	after := ""
	for {
		if err := d.wait(ctx); err != nil {
			return nil, err
		}
		members, err := d.Session.GuildMembers(tenant, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrapErr("listing members", err)
		}
		for _, m := range members {
			for _, r := range m.Roles {
				if r == roleID {
					out = append(out, m.User.ID)
					break
				}
			}
		}
		if len(members) < memberPageSize {
			return out, nil
		}
		after = members[len(members)-1].User.ID
	}
}

func (d *Platform) SetChannelPermissions(ctx context.Context, tenant, channel, target string, ow platform.Overwrite) error {
	if target == platform.EveryoneTarget {
		target = tenant
	}
	if err := d.wait(ctx); err != nil {
		return err
	}
	ch, err := d.Session.Channel(channel, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("reading channel", err)
	}
	var allow, deny int64
	for _, po := range ch.PermissionOverwrites {
		if po.ID == target {
			allow, deny = po.Allow, po.Deny
			break
		}
	}
	allow, deny = mergeOverwrite(allow, deny, ow)
	if err := d.wait(ctx); err != nil {
		return err
	}
	err = d.Session.ChannelPermissionSet(channel, target, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
	return wrapErr("setting channel permissions", err)
}

func (d *Platform) DeleteMessage(ctx context.Context, tenant, channel, message string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	err := d.Session.ChannelMessageDelete(channel, message, discordgo.WithContext(ctx))
	return wrapErr("deleting message", err)
}

func (d *Platform) findTextChannel(ctx context.Context, tenant, name string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}
	chans, err := d.Session.GuildChannels(tenant, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("listing channels", err)
	}
	for _, ch := range chans {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("channel %s: %w", name, platform.ErrNotFound)
}

// Renders an audit record as a discord embed.
func auditEmbed(rec platform.AuditRecord) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       rec.Title,
		Description: fmt.Sprintf("**Author:** %s (%s)\n**Content:** %s", rec.AuthorName, rec.AuthorID, rec.Content),
		Color:       0xff0000,
		Timestamp:   rec.Time.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", rec.ChannelID), Inline: true},
		},
	}
}

func (d *Platform) SendAudit(ctx context.Context, tenant, channelName string, rec platform.AuditRecord) error {
	chID, err := d.findTextChannel(ctx, tenant, channelName)
	if err != nil {
		return err
	}
	if err := d.wait(ctx); err != nil {
		return err
	}
	_, err = d.Session.ChannelMessageSendEmbed(chID, auditEmbed(rec), discordgo.WithContext(ctx))
	return wrapErr("sending audit record", err)
}

func (d *Platform) NotifyOwner(ctx context.Context, tenant, content string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	g, err := d.Session.Guild(tenant, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("reading guild", err)
	}
	dm, err := d.Session.UserChannelCreate(g.OwnerID, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("opening owner DM", err)
	}
	_, err = d.Session.ChannelMessageSend(dm.ID, content, discordgo.WithContext(ctx))
	return wrapErr("sending owner DM", err)
}
