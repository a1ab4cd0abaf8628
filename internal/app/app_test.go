package app

import (
	"context"
	"testing"

	"despesas_bot/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(mode string) *config.Config {
	return &config.Config{
		Mode:          mode,
		LedgerBackend: config.BackendMemory,
		AI: config.AIConfig{
			Provider: config.ProviderXAI,
			XAI:      config.XAIConfig{APIKey: "test-key"},
		},
	}
}

func TestNewLedgerMemoryBackend(t *testing.T) {
	a, err := NewLedger(context.Background(), memoryConfig(config.ModeLedger))
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Nil(t, a.MongoDB)

	_, err = a.Ledger.Record(context.Background(), "u1", decimal.NewFromInt(144), "ifood", 1)
	require.NoError(t, err)

	total, err := a.Ledger.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "144.00", total.StringFixed(2))
}

func TestBuildRespondersPerMode(t *testing.T) {
	tests := []struct {
		mode string
		want []string
	}{
		{mode: config.ModeLedger, want: []string{"ledger", "help"}},
		{mode: config.ModeAssistant, want: []string{"assistant"}},
		{mode: config.ModeHybrid, want: []string{"ledger", "assistant", "help"}},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := memoryConfig(tt.mode)
			a := &App{Config: cfg}
			if cfg.NeedsLedger() {
				require.NoError(t, a.initLedger(context.Background()))
			}

			responders, err := a.buildResponders(context.Background())
			require.NoError(t, err)

			names := make([]string, 0, len(responders))
			for _, r := range responders {
				names = append(names, r.Name())
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestCloseEmptyApp(t *testing.T) {
	assert.NoError(t, (&App{}).Close(context.Background()))
}
