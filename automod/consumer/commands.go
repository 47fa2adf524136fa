package consumer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/phantomguard/warden/automod"
	"github.com/phantomguard/warden/automod/profile"
)

// Minimal prefix-command router for the administrative commands. Permission checks happen before Dispatch is called.
type CommandRouter struct {
	Engine *automod.Engine
	Prefix string
}

// An administrative command invocation.
type Command struct {
	Tenant  string
	Invoker string
	// name of the invoker, used in replies about themselves
	InvokerName string
	Name        string
	Args        []string
}

var mentionRegex = regexp.MustCompile(`^<@!?(\d+)>$`)

// Parses a command out of message content. Returns nil if the content isn't a command.
func (r *CommandRouter) Parse(tenant, invoker, invokerName, content string) *Command {
	if r.Prefix == "" || !strings.HasPrefix(content, r.Prefix) {
		return nil
	}
	fields := strings.Fields(strings.TrimPrefix(content, r.Prefix))
	if len(fields) == 0 {
		return nil
	}
	return &Command{
		Tenant:      tenant,
		Invoker:     invoker,
		InvokerName: invokerName,
		Name:        strings.ToLower(fields[0]),
		Args:        fields[1:],
	}
}

func (r *CommandRouter) IsKnown(name string) bool {
	switch name {
	case "resetmute", "resetspam", "unlock", "phantominfo":
		return true
	}
	return false
}

// Runs a parsed command and returns the reply text. Unknown commands return the empty string.
func (r *CommandRouter) Dispatch(ctx context.Context, cmd *Command) (string, error) {
	switch cmd.Name {
	case "resetmute":
		res := r.Engine.ResetMute(ctx, cmd.Tenant)
		if res.RoleMissing {
			return fmt.Sprintf("⚠️ Role '%s' not found. %d profiles reset.", r.Engine.Config.MutedRoleName, res.ProfilesReset), nil
		}
		reply := fmt.Sprintf("✅ %d members unmuted, cache reset.", res.Unmuted)
		if n := len(res.Report.Failures); n > 0 {
			reply += fmt.Sprintf(" (%d failed)", n)
		}
		return reply, nil
	case "resetspam":
		r.Engine.ResetSpam(ctx, cmd.Tenant)
		return "✅ Spam cache and suspicion scores reset.", nil
	case "unlock":
		res := r.Engine.Unlock(ctx, cmd.Tenant)
		if !res.WasLocked {
			return "No active raid alert.", nil
		}
		reply := "🔓 Server unlocked."
		if n := len(res.Report.Failures); n > 0 {
			reply += fmt.Sprintf(" (%d channels failed)", n)
		}
		return reply, nil
	case "phantominfo":
		target, name := cmd.Invoker, cmd.InvokerName
		if len(cmd.Args) > 0 {
			target = parseUserArg(cmd.Args[0])
			name = target
		}
		sum, err := r.Engine.Info(ctx, cmd.Tenant, target)
		if err != nil {
			return "", err
		}
		if sum == nil {
			return fmt.Sprintf("No data for %s.", name), nil
		}
		return formatSummary(name, sum), nil
	}
	return "", nil
}

// Accepts a raw member ID or a mention (<@id> or <@!id>).
func parseUserArg(arg string) string {
	if m := mentionRegex.FindStringSubmatch(arg); m != nil {
		return m[1]
	}
	return arg
}

func formatSummary(name string, sum *profile.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**PhantomGuard stats for %s**\n", name)
	fmt.Fprintf(&b, "Suspicion score: %d\n", sum.Score)
	fmt.Fprintf(&b, "Recent messages: %d\n", sum.RecentMessages)
	fmt.Fprintf(&b, "Mentions in messages: %d\n", sum.MentionCount)
	fmt.Fprintf(&b, "Links detected: %d\n", sum.LinkCount)
	fmt.Fprintf(&b, "Muted: %t\n", sum.Muted)
	fmt.Fprintf(&b, "ShadowBanned: %t\n", sum.Shadowbanned)
	if len(sum.Flags) > 0 {
		fmt.Fprintf(&b, "Flags: %s\n", strings.Join(sum.Flags, ", "))
	}
	b.WriteString("Recent history:\n")
	if len(sum.History) == 0 {
		b.WriteString("None\n")
	}
	for _, h := range sum.History {
		fmt.Fprintf(&b, "%s - %s - %s\n", h.Time.UTC().Format("2006-01-02 15:04:05"), h.Action, h.Detail)
	}
	return b.String()
}
