package bridge

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/testutil"
)

var ctx = context.Background()

const (
	tableGUID   = "0f5b3a62-8d3e-4d1c-9c1a-5d7f6b1e2a01"
	dbGUID      = "0f5b3a62-8d3e-4d1c-9c1a-5d7f6b1e2a02"
	missingGUID = "0f5b3a62-8d3e-4d1c-9c1a-5d7f6b1e2aff"
)

var modified = testutil.Epoch.Add(90 * time.Minute)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(soft bool) *Config {
	return &Config{
		Originator: OriginatorConfig{
			SourceName:       "hive-bridge",
			HomeCollectionID: "hive-1",
			ServerName:       "hive-server",
			ServerType:       "hive",
		},
		SoftDelete: soft,
		Types: []Mapping{
			{Foreign: "hive_table", Canonical: testutil.TypeDataFile},
			{Foreign: "hive_db", Canonical: testutil.TypeDatabase},
			{Foreign: "hive_process", Canonical: testutil.TypeProcess},
		},
		Relationships: []RelationshipMapping{
			{Foreign: "db_tables", Canonical: testutil.TypeDataContent},
		},
		Classifications: []Mapping{
			{Foreign: "pii", Canonical: testutil.TypeConfidentiality},
		},
	}
}

func foreignFixture() *MapRepository {
	return NewMapRepository(
		&ForeignEntity{
			GUID:     tableGUID,
			TypeName: "hive_table",
			Properties: map[string]any{
				"qualifiedName": "warehouse.orders",
				"sizeBytes":     float64(2048),
				"owner":         "etl",
			},
			Version: 3,
		},
		&ForeignEntity{
			GUID:       dbGUID,
			TypeName:   "hive_db",
			Properties: map[string]any{"qualifiedName": "warehouse"},
			Modified:   modified,
		},
	)
}

func newBridge(t *testing.T, cfg *Config, opts ...Option) *Bridge {
	t.Helper()
	base := []Option{WithLogger(discardLogger())}
	b, err := New(testutil.FixtureLattice(t), foreignFixture(), cfg, append(base, opts...)...)
	require.NoError(t, err)
	return b
}
