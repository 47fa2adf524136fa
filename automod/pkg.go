package automod

import (
	"github.com/phantomguard/warden/automod/countstore"
	"github.com/phantomguard/warden/automod/engine"
)

type Engine = engine.Engine
type Config = engine.Config
type RuleSet = engine.RuleSet
type Verdict = engine.Verdict
type Report = engine.Report

type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier

type MessageContext = engine.MessageContext
type MessageEvent = engine.MessageEvent

type MessageRuleFunc = engine.MessageRuleFunc

var (
	FlagAutoMuted        = engine.FlagAutoMuted
	FlagAutoShadowbanned = engine.FlagAutoShadowbanned
	FlagRaidJoin         = engine.FlagRaidJoin
	FlagSpamBurst        = engine.FlagSpamBurst
	FlagMassMention      = engine.FlagMassMention
	FlagSuspectToken     = engine.FlagSuspectToken

	PeriodTotal = countstore.PeriodTotal
	PeriodDay   = countstore.PeriodDay
	PeriodHour  = countstore.PeriodHour
)
