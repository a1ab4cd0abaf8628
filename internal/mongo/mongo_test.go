package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty uri", cfg: Config{Database: "ledger"}, wantErr: "URI cannot be empty"},
		{name: "empty database", cfg: Config{URI: "mongodb://localhost:27017"}, wantErr: "database name cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := Connect(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client

	assert.NoError(t, c.Close(context.Background()))
	assert.Nil(t, c.Database())
	assert.Error(t, c.Ping(context.Background()))
}
