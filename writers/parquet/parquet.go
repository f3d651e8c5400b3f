package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/goccy/go-json"
	pqgo "github.com/parquet-go/parquet-go"
)

// Row is the parquet layout; documents are schemaless so the record is kept as JSON
type Row struct {
	Stream        string `parquet:"stream"`
	Version       int64  `parquet:"version"`
	TimeExtracted string `parquet:"time_extracted"`
	Data          string `parquet:"data"`
}

type fileMetadata struct {
	version     int64
	path        string
	file        *os.File
	writer      *pqgo.GenericWriter[Row]
	recordCount int
}

// Parquet destination writes one file per stream version and checkpoint
// local_path/stream/version/<timestamp>_<ulid>.parquet
type Parquet struct {
	config *Config
	files  map[string]*fileMetadata
}

func (p *Parquet) GetConfigRef() destination.Config {
	p.config = &Config{}
	return p.config
}

func (p *Parquet) Spec() any {
	return Config{}
}

func (p *Parquet) Type() string {
	return string(destination.Parquet)
}

func (p *Parquet) Check(_ context.Context) error {
	return destination.CheckWritable(p.config.Path)
}

func (p *Parquet) Write(_ context.Context, message *types.Message) error {
	switch message.Type {
	case types.RecordMessage:
		fileMeta, err := p.fileFor(message.Stream, message.Version)
		if err != nil {
			return err
		}
		data, err := json.Marshal(message.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %s", err)
		}
		row := Row{
			Stream:        message.Stream,
			Version:       message.Version,
			TimeExtracted: message.TimeExtracted,
			Data:          string(data),
		}
		if _, err := fileMeta.writer.Write([]Row{row}); err != nil {
			return fmt.Errorf("failed to write record: %s", err)
		}
		fileMeta.recordCount++
	case types.ActivateVersionMessage:
		if fileMeta, open := p.files[message.Stream]; open && fileMeta.version != message.Version {
			if err := p.closeFile(message.Stream); err != nil {
				return err
			}
		}
		return destination.PruneVersions(p.config.Path, message.Stream, message.Version)
	}
	return nil
}

func (p *Parquet) fileFor(stream string, version int64) (*fileMetadata, error) {
	if fileMeta, open := p.files[stream]; open {
		if fileMeta.version == version {
			return fileMeta, nil
		}
		if err := p.closeFile(stream); err != nil {
			return nil, err
		}
	}

	directoryPath := destination.VersionPath(p.config.Path, stream, version)
	if err := os.MkdirAll(directoryPath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directories[%s]: %s", directoryPath, err)
	}

	filePath := filepath.Join(directoryPath, utils.TimestampedFileName(constants.ParquetFileExt))
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file[%s]: %s", filePath, err)
	}

	if p.files == nil {
		p.files = make(map[string]*fileMetadata)
	}
	fileMeta := &fileMetadata{
		version: version,
		path:    filePath,
		file:    file,
		writer: pqgo.NewGenericWriter[Row](file,
			pqgo.Compression(&pqgo.Snappy),
			pqgo.MaxRowsPerRowGroup(int64(p.config.RowGroupSize)),
		),
	}
	p.files[stream] = fileMeta
	return fileMeta, nil
}

func (p *Parquet) closeFile(stream string) error {
	fileMeta := p.files[stream]
	delete(p.files, stream)

	err := utils.ErrExecSequential(
		utils.ErrExecFormat("failed to close writer: %s", fileMeta.writer.Close),
		utils.ErrExecFormat("failed to close file: %s", fileMeta.file.Close),
	)
	if err != nil {
		return err
	}

	if fileMeta.recordCount == 0 {
		logger.Debugf("removing empty parquet file %s", fileMeta.path)
		return os.Remove(fileMeta.path)
	}
	logger.Infof("finished writing file [%s] with %d records", fileMeta.path, fileMeta.recordCount)
	return nil
}

// Flush finalizes the open files; the next record of a stream starts a new file
func (p *Parquet) Flush(_ context.Context) error {
	closers := []func() error{}
	for stream := range p.files {
		closers = append(closers, func() error { return p.closeFile(stream) })
	}
	return utils.ErrExecSequential(closers...)
}

func (p *Parquet) Close(ctx context.Context) error {
	return p.Flush(ctx)
}

func init() {
	destination.Register(destination.Parquet, func() destination.Writer {
		return new(Parquet)
	})
}
