package persistence

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aidledger-audit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoDB_Accessors(t *testing.T) {
	// mongo.Connect is lazy, so no server is needed to build a handle
	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	db := client.Database("aid_ledger_test")

	mdb := &MongoDB{logger: slog.Default(), client: client, database: db}

	assert.Equal(t, db, mdb.Database())
	assert.Equal(t, "ledger_records", mdb.Collection("ledger_records").Name())
}

func TestNewMongoDB_InvalidURI(t *testing.T) {
	cfg := &config.MongoDBConfig{URI: "not-a-mongo-uri", Database: "x", Timeout: 100 * time.Millisecond, MaxPoolSize: 1, MinPoolSize: 1}

	mdb, err := NewMongoDB(context.Background(), slog.Default(), cfg)
	assert.Error(t, err)
	assert.Nil(t, mdb)
}
