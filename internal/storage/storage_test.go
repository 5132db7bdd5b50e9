package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/config"
	"github.com/shaiso/exosphere/internal/memstore"
)

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), config.Config{
		StoreBackend: config.BackendMemory,
		ProbeAddr:    "127.0.0.1:9",
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &memstore.Store{}, s.Store)
	assert.NotNil(t, s.Existence)
	assert.Equal(t, "127.0.0.1:9", s.Addr)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Config{StoreBackend: "cassandra"}, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestAddrFromURLs(t *testing.T) {
	assert.Equal(t, "db.internal:5432", postgresAddr("postgres://u:p@db.internal:5432/exo"))
	assert.Equal(t, "db.internal:5432", postgresAddr("host=db.internal port=5432 user=u dbname=exo"))
	assert.Equal(t, "localhost:55432", postgresAddr(""))

	assert.Equal(t, "mongo-1:27017", mongoAddr("mongodb://mongo-1:27017,mongo-2:27017/?replicaSet=rs0"))
	assert.Equal(t, "mongo-1:27017", mongoAddr("mongodb://mongo-1"))

	assert.Equal(t, "cache:6380", redisAddr("redis://cache:6380/1"))
	assert.Empty(t, redisAddr("not a url"))
}
