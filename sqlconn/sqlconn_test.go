package sqlconn

import (
	"testing"

	"github.com/sqldef/sqldict/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesForKnownBackends(t *testing.T) {
	caps, err := capabilitiesFor("mysql")
	require.NoError(t, err)
	assert.True(t, caps.OnDuplicateKey)
	assert.Equal(t, query.ParamQuestion, caps.Params)

	caps, err = capabilitiesFor("postgres")
	require.NoError(t, err)
	assert.True(t, caps.OnConflictDo)
	assert.Equal(t, query.ParamDollar, caps.Params)

	caps, err = capabilitiesFor("sqlserver")
	require.NoError(t, err)
	assert.False(t, caps.OnDuplicateKey)
	assert.False(t, caps.OnConflictDo)
}

func TestCapabilitiesForUnknownBackend(t *testing.T) {
	_, err := capabilitiesFor("oracle")
	assert.Error(t, err)
}

func TestDriverNameForMapsLogicalToRegisteredNames(t *testing.T) {
	name, err := driverNameFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", name)

	name, err = driverNameFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", name)
}

func TestCacheKeyDistinguishesDriverAndDSN(t *testing.T) {
	assert.NotEqual(t, cacheKey("mysql", "dsn-a"), cacheKey("mysql", "dsn-b"))
	assert.NotEqual(t, cacheKey("mysql", "dsn-a"), cacheKey("postgres", "dsn-a"))
}
