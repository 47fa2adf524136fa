package engine

import (
	"context"
	"errors"

	"github.com/phantomguard/warden/automod/platform"
)

// Removes a shadowbanned member's message and forwards its content to the tenant's audit channel.
//
// A missing audit channel is logged and otherwise ignored.
func (eng *Engine) filterShadowbanned(ctx context.Context, evt MessageEvent) Report {
	ctx, span := tracer.Start(ctx, "filterShadowbanned")
	defer span.End()

	logger := eng.Logger.With("tenant", evt.Tenant, "user", evt.User, "channel", evt.Channel)
	var rep Report

	err := eng.Platform.DeleteMessage(ctx, evt.Tenant, evt.Channel, evt.MessageID)
	rep.Record("delete-message", evt.Tenant, evt.MessageID, err)

	rec := platform.AuditRecord{
		Title:      "Shadowbanned message",
		AuthorID:   evt.User,
		AuthorName: evt.UserName,
		ChannelID:  evt.Channel,
		Content:    evt.Content,
		Time:       evt.Time,
	}
	err = eng.Platform.SendAudit(ctx, evt.Tenant, eng.Config.AuditChannel, rec)
	if errors.Is(err, platform.ErrNotFound) {
		logger.Info("audit channel not found, shadowbanned message not forwarded", "auditChannel", eng.Config.AuditChannel)
	} else {
		rep.Record("send-audit", evt.Tenant, eng.Config.AuditChannel, err)
	}
	shadowbanFilteredCount.Inc()
	rep.Log(logger, "shadowbanned message filtered")
	return rep
}
