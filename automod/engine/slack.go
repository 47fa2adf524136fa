package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type SlackNotifier struct {
	SlackWebhookURL string
	// defaults to http.DefaultClient
	Client *http.Client
}

func (n *SlackNotifier) SendEscalation(ctx context.Context, service string, c *MessageContext, v Verdict) error {
	if service != "slack" {
		return nil
	}
	msg := slackBody("⚠️ Automod Member Action ⚠️\n", c.Message, v, c.effects.Flags, c.effects.Suspicions)
	c.Logger.Debug("sending slack notification")
	return n.sendSlackMsg(ctx, msg)
}

func (n *SlackNotifier) SendLockdown(ctx context.Context, tenant string, joins int) error {
	msg := "🔒 Automod Lockdown 🔒\n"
	msg += fmt.Sprintf("Tenant `%s` locked down", tenant)
	if joins > 0 {
		msg += fmt.Sprintf(" after %d joins", joins)
	}
	msg += "\n"
	return n.sendSlackMsg(ctx, msg)
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	// loosely based on: https://golangcode.com/send-slack-messages-without-a-library/

	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || string(respBody) != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(header string, evt MessageEvent, v Verdict, newFlags []string, suspicions []Suspicion) string {
	msg := header
	msg += fmt.Sprintf("`%s` / `%s` (`%s`) in `%s`\n", evt.Tenant, evt.UserName, evt.User, evt.Channel)
	msg += fmt.Sprintf("Action: `%s` (score %d)\n", v.Action, v.Score)
	if len(newFlags) > 0 {
		msg += fmt.Sprintf("Flags: `%s`\n", strings.Join(newFlags, ", "))
	}
	for _, s := range suspicions {
		msg += fmt.Sprintf("+%d: %s\n", s.Delta, s.Reason)
	}
	return msg
}
