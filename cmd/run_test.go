package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/fleetsim/sim"
)

func TestRunSimulation_DepotScenario_WritesHistory(t *testing.T) {
	// GIVEN the depot scenario and a history destination
	out := filepath.Join(t.TempDir(), "history.json")

	// WHEN the scenario is run
	h, s, err := runSimulation(context.Background(), runOptions{scenario: "testdata/depot.yaml", historyPath: out})

	// THEN it completes and the file holds the same history
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, sim.OutcomeCompleted, h.Outcome)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded sim.History
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h.Len(), decoded.Len())
	assert.Equal(t, h.SimulationID, decoded.SimulationID)
	assert.NotNil(t, s.Trace(), "depot scenario enables tracing")
}

func TestRunSimulation_OverrideApplied(t *testing.T) {
	h, _, err := runSimulation(context.Background(), runOptions{
		scenario: "testdata/depot.yaml",
		override: func(p *sim.SimulationParameters) { p.MaxSteps = 5 },
	})

	require.NoError(t, err)
	assert.Equal(t, sim.OutcomeHorizon, h.Outcome)
	assert.Equal(t, 5, h.Len())
}

func TestRunSimulation_InvalidOverride_NoSimulator(t *testing.T) {
	_, s, err := runSimulation(context.Background(), runOptions{
		scenario: "testdata/depot.yaml",
		override: func(p *sim.SimulationParameters) { p.NumberOfVehicles = -1 },
	})

	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestRunSimulation_MissingScenario(t *testing.T) {
	_, _, err := runSimulation(context.Background(), runOptions{scenario: "testdata/missing.yaml"})

	assert.ErrorContains(t, err, "reading scenario")
}

func TestRunSimulation_CancelledContext_ReturnsPartialHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, _, err := runSimulation(ctx, runOptions{scenario: "testdata/depot.yaml"})

	assert.ErrorIs(t, err, sim.ErrCancelled)
	require.NotNil(t, h)
	assert.Equal(t, sim.OutcomeCancelled, h.Outcome)
}

func TestRunSimulation_RedisProgress(t *testing.T) {
	mr := miniredis.RunT(t)

	h, _, err := runSimulation(context.Background(), runOptions{
		scenario: "testdata/depot.yaml",
		redisURL: "redis://" + mr.Addr(),
	})

	require.NoError(t, err)
	assert.Equal(t, sim.OutcomeCompleted, h.Outcome)
}

func TestGetEnvUnlessSet(t *testing.T) {
	t.Setenv("FLEETSIM_TEST_URL", "from-env")

	assert.Equal(t, "flag", getEnvUnlessSet(true, "FLEETSIM_TEST_URL", "flag"))
	assert.Equal(t, "from-env", getEnvUnlessSet(false, "FLEETSIM_TEST_URL", ""))
	assert.Equal(t, "fallback", getEnvUnlessSet(false, "FLEETSIM_TEST_UNSET", "fallback"))
}

func TestLogOutcome(t *testing.T) {
	cancelled := &sim.History{Outcome: sim.OutcomeCancelled}
	completed := &sim.History{Outcome: sim.OutcomeCompleted}
	boom := errors.New("boom")

	tests := []struct {
		name      string
		history   *sim.History
		err       error
		wantErr   error
		wantLevel logrus.Level
	}{
		{name: "cancelled run is logged, not failed", history: cancelled, err: errors.Join(sim.ErrCancelled, context.Canceled), wantLevel: logrus.WarnLevel},
		{name: "completed run", history: completed, wantLevel: logrus.InfoLevel},
		{name: "other errors are returned", history: completed, err: boom, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()

			err := logOutcome(logger, tt.history, tt.err, time.Second)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hook.AllEntries())
				return
			}
			require.NoError(t, err)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, tt.wantLevel, hook.LastEntry().Level)
			assert.Contains(t, hook.LastEntry().Message, string(tt.history.Outcome))
		})
	}
}
