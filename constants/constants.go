package constants

import "time"

const (
	ParquetFileExt = "parquet"
	JSONLFileExt   = "jsonl"
	MongoPrimaryID = "_id"

	// replication method accepted by the sync command
	Incremental = "INCREMENTAL"

	DefaultUpdateBookmarkPeriod = 1000
	DefaultBatchSize            = 5_000
	DefaultPingTimeout          = 5 * time.Minute
	DefaultMaxPoolSize          = 100
)

// viper keys
const (
	ConfigFolder  = "CONFIG_FOLDER"
	StatePath     = "STATE_PATH"
	StreamsPath   = "STREAMS_PATH"
	LogLevel      = "LOG_LEVEL"
	StateStoreURL = "STATE_STORE_URL"
	EncryptionKey = "ENCRYPTION_KEY"
	NoSave        = "NO_SAVE"
)

// columns added to every record written by file based destinations
const (
	OlakeTimestamp = "_olake_timestamp"
	OlakeVersion   = "_olake_version"
)
