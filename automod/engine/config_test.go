package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.RaidSweepInterval = 0
	assert.ErrorContains(cfg.Validate(), "raid sweep interval")

	cfg = DefaultConfig()
	cfg.RoleSweepInterval = -1
	assert.ErrorContains(cfg.Validate(), "role sweep interval")

	cfg = DefaultConfig()
	cfg.JoinWindow = 0
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.SuspicionLimit = 101
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.JoinThreshold = 0
	assert.Error(cfg.Validate())
}

func TestSweepLoopsRejectZeroInterval(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	eng.Config.RaidSweepInterval = 0
	eng.Config.RoleSweepInterval = 0
	assert.Error(eng.RunRaidSweeps(ctx))
	assert.Error(eng.RunRoleReconciler(ctx))
}
