package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/drivers/abstract"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"golang.org/x/crypto/ssh"
)

type Mongo struct {
	config    *Config
	client    *mongo.Client
	sshClient *ssh.Client
	// clock used for versions and extraction times
	now func() time.Time
}

func NewMongo() *Mongo {
	return &Mongo{now: time.Now}
}

// config reference; must be pointer
func (m *Mongo) GetConfigRef() abstract.Config {
	m.config = &Config{}
	return m.config
}

func (m *Mongo) Spec() any {
	return Config{}
}

func (m *Mongo) Type() string {
	return "MongoDB"
}

func (m *Mongo) Setup(ctx context.Context) error {
	if err := m.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	opts := options.Client()
	opts.ApplyURI(m.config.URI())
	opts.SetCompressors([]string{"snappy"}) // using Snappy compression; read here https://en.wikipedia.org/wiki/Snappy_(compression)
	opts.SetMaxPoolSize(constants.DefaultMaxPoolSize)
	if m.config.SSHConfig != nil {
		sshClient, err := m.config.SSHConfig.SetupSSHConnection()
		if err != nil {
			return fmt.Errorf("failed to setup SSH tunnel: %s", err)
		}
		m.sshClient = sshClient
		opts.SetDialer(&sshDialer{client: sshClient})
	}
	conn, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %s", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultPingTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx, opts.ReadPreference); err != nil {
		_ = conn.Disconnect(ctx)
		return fmt.Errorf("failed to ping: %s", err)
	}

	m.client = conn
	logger.Infof("connected to %d MongoDB hosts", len(m.config.Hosts))
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	closers := []func() error{}
	if m.client != nil {
		closers = append(closers, utils.ErrExecFormat("failed to disconnect: %s", func() error { return m.client.Disconnect(ctx) }))
	}
	if m.sshClient != nil {
		closers = append(closers, utils.ErrExecFormat("failed to close SSH tunnel: %s", m.sshClient.Close))
	}
	return utils.ErrExecSequential(closers...)
}

func (m *Mongo) DestinationStream(stream *types.Stream) string {
	return stream.DestinationName(m.config.IncludeSchemasInDestinationStreamName)
}

func (m *Mongo) collection(stream *types.Stream) Collection {
	database := m.client.Database(stream.StreamMeta().DatabaseName, options.Database().SetReadConcern(readconcern.Majority()))
	return &mongoCollection{
		collection: database.Collection(stream.CollectionName()),
		batchSize:  int32(m.config.BatchSize),
	}
}

func (m *Mongo) SyncStream(ctx context.Context, stream *types.Stream, state *types.State, sink destination.Sink) (abstract.SyncMetrics, error) {
	if m.client == nil {
		return abstract.SyncMetrics{}, fmt.Errorf("client not set up")
	}
	return syncCollection(ctx, m.collection(stream), stream, state, sink, syncOptions{
		destinationStream:    m.DestinationStream(stream),
		updateBookmarkPeriod: m.config.UpdateBookmarkPeriod,
		now:                  m.now,
	})
}
