package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phantomguard/warden/automod"

	"github.com/bwmarrin/discordgo"
)

// Connects the engine to the discord gateway: member joins feed the raid detector, guild messages are scored, and administrative prefix commands are dispatched when the engine allows it.
type DiscordConsumer struct {
	Logger  *slog.Logger
	Session *discordgo.Session
	Engine  *automod.Engine
	Router  *CommandRouter

	ctx context.Context
}

// Intents the consumer needs; message content and member events are privileged on discord.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

// Opens the gateway session and processes events until the context is cancelled.
func (dc *DiscordConsumer) Run(ctx context.Context) error {
	if dc.Engine == nil {
		return fmt.Errorf("nil engine")
	}
	dc.ctx = ctx
	dc.Session.Identify.Intents = Intents
	dc.Session.AddHandler(dc.handleReady)
	dc.Session.AddHandler(dc.handleMemberAdd)
	dc.Session.AddHandler(dc.handleMessageCreate)

	if err := dc.Session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	dc.Logger.Info("connected to discord gateway")
	<-ctx.Done()
	dc.Logger.Info("closing discord gateway")
	return dc.Session.Close()
}

func (dc *DiscordConsumer) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	dc.Logger.Info("discord session ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (dc *DiscordConsumer) handleMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	ts := m.JoinedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := dc.Engine.ProcessJoin(dc.ctx, m.GuildID, m.User.ID, ts); err != nil {
		dc.Logger.Error("failed to process join", "guild", m.GuildID, "user", m.User.ID, "err", err)
	}
}

func (dc *DiscordConsumer) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// ignore bots and direct messages
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	evt := messageEvent(m)
	verdict, err := dc.Engine.ProcessMessage(dc.ctx, evt)
	if err != nil {
		dc.Logger.Error("failed to process message", "guild", m.GuildID, "user", m.Author.ID, "err", err)
		return
	}
	if !verdict.Dispatch || dc.Router == nil {
		return
	}
	cmd := dc.Router.Parse(m.GuildID, m.Author.ID, m.Author.Username, m.Content)
	if cmd == nil || !dc.Router.IsKnown(cmd.Name) {
		return
	}
	// resolved mentions are more reliable than parsing the argument text
	if cmd.Name == "phantominfo" && len(m.Mentions) > 0 {
		cmd.Args = []string{m.Mentions[0].ID}
	}
	if !dc.isAdmin(s, m) {
		dc.reply(s, m.ChannelID, "⛔ Administrator permission required.")
		return
	}
	reply, err := dc.Router.Dispatch(dc.ctx, cmd)
	if err != nil {
		dc.Logger.Error("command failed", "command", cmd.Name, "guild", m.GuildID, "err", err)
		reply = "Command failed."
	}
	if reply != "" {
		dc.reply(s, m.ChannelID, reply)
	}
}

func messageEvent(m *discordgo.MessageCreate) automod.MessageEvent {
	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		mentions = append(mentions, u.ID)
	}
	return automod.MessageEvent{
		Tenant:    m.GuildID,
		User:      m.Author.ID,
		UserName:  m.Author.Username,
		Channel:   m.ChannelID,
		MessageID: m.ID,
		Content:   m.Content,
		Mentions:  mentions,
		Time:      m.Timestamp,
	}
}

func (dc *DiscordConsumer) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		dc.Logger.Warn("reading member permissions", "guild", m.GuildID, "user", m.Author.ID, "err", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (dc *DiscordConsumer) reply(s *discordgo.Session, channel, content string) {
	if _, err := s.ChannelMessageSend(channel, content); err != nil {
		dc.Logger.Warn("sending command reply", "channel", channel, "err", err)
	}
}
