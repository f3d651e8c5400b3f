package local

import (
	"bufio"
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
)

type Config struct {
	Path string `json:"local_path" validate:"required"`
}

func (c *Config) Validate() error {
	return utils.Validate(c)
}

type streamFile struct {
	version int64
	path    string
	file    *os.File
	buf     *bufio.Writer
	records int64
}

// Local writes records as JSON lines
// local_path/stream/version/<timestamp>_<ulid>.jsonl
type Local struct {
	config *Config
	files  map[string]*streamFile
}

func (l *Local) GetConfigRef() destination.Config {
	l.config = &Config{}
	return l.config
}

func (l *Local) Spec() any {
	return Config{}
}

func (l *Local) Type() string {
	return string(destination.Local)
}

func (l *Local) Check(_ context.Context) error {
	return destination.CheckWritable(l.config.Path)
}

func (l *Local) Write(_ context.Context, message *types.Message) error {
	switch message.Type {
	case types.RecordMessage:
		sf, err := l.fileFor(message.Stream, message.Version)
		if err != nil {
			return err
		}
		line, err := json.Marshal(destination.FlatRecord(message))
		if err != nil {
			return fmt.Errorf("failed to marshal record: %s", err)
		}
		if _, err := sf.buf.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write record into %s: %s", sf.path, err)
		}
		sf.records++
	case types.ActivateVersionMessage:
		if sf, open := l.files[message.Stream]; open && sf.version != message.Version {
			if err := l.closeFile(message.Stream); err != nil {
				return err
			}
		}
		return destination.PruneVersions(l.config.Path, message.Stream, message.Version)
	}
	return nil
}

func (l *Local) fileFor(stream string, version int64) (*streamFile, error) {
	if sf, open := l.files[stream]; open {
		if sf.version == version {
			return sf, nil
		}
		if err := l.closeFile(stream); err != nil {
			return nil, err
		}
	}

	directory := destination.VersionPath(l.config.Path, stream, version)
	if err := os.MkdirAll(directory, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directories[%s]: %s", directory, err)
	}
	path := filepath.Join(directory, utils.TimestampedFileName(constants.JSONLFileExt))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file[%s]: %s", path, err)
	}

	if l.files == nil {
		l.files = make(map[string]*streamFile)
	}
	sf := &streamFile{version: version, path: path, file: file, buf: bufio.NewWriter(file)}
	l.files[stream] = sf
	logger.Debugf("writing stream %s version %d into %s", stream, version, path)
	return sf, nil
}

func (l *Local) Flush(_ context.Context) error {
	for _, sf := range l.files {
		if err := sf.buf.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s: %s", sf.path, err)
		}
		if err := sf.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s: %s", sf.path, err)
		}
	}
	return nil
}

func (l *Local) closeFile(stream string) error {
	sf := l.files[stream]
	delete(l.files, stream)
	err := utils.ErrExecSequential(
		utils.ErrExecFormat("failed to flush file: %s", sf.buf.Flush),
		utils.ErrExecFormat("failed to close file: %s", sf.file.Close),
	)
	if err != nil {
		return err
	}
	logger.Infof("closed %s with %d records", sf.path, sf.records)
	return nil
}

func (l *Local) Close(_ context.Context) error {
	closers := []func() error{}
	for stream := range l.files {
		closers = append(closers, func() error { return l.closeFile(stream) })
	}
	return utils.ErrExecSequential(closers...)
}

func init() {
	destination.Register(destination.Local, func() destination.Writer {
		return new(Local)
	})
}
