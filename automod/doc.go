// Raid and spam escalation engine for multi-tenant chat communities.
//
// This package (`github.com/phantomguard/warden/automod`) contains a "rules engine" which watches member joins and messages in every tenant (eg, a Discord guild) the bot belongs to. Message rules contribute to a per-member suspicion score; members crossing the suspicion limit are muted, and muted members who keep crossing it are shadowbanned (their messages are silently removed and forwarded to an audit channel). Separately, a periodic sweep over recent joins locks down a tenant when a burst of joins looks like a raid, and a reconciler keeps the enforcement roles present in every tenant.
//
// All member and tenant state lives in process memory. Outbound actions go through the `platform.Platform` interface; see `automod/platform/discord` for the Discord implementation and `cmd/warden` for a daemon built on this package.
package automod
