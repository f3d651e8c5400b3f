package destination

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils/logger"
)

// VersionPath is the directory holding one version of a stream: <base>/<stream>/<version>
func VersionPath(basePath, stream string, version int64) string {
	return filepath.Join(basePath, stream, strconv.FormatInt(version, 10))
}

// PruneVersions removes every version directory of a stream except keep. Activating a version
// means older loads of the stream are obsolete.
func PruneVersions(basePath, stream string, keep int64) error {
	streamPath := filepath.Join(basePath, stream)
	entries, err := os.ReadDir(streamPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list versions of %s: %s", stream, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		version, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || version == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(streamPath, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove version %d of %s: %s", version, stream, err)
		}
		logger.Infof("removed obsolete version %d of stream %s", version, stream)
	}
	return nil
}

// FlatRecord returns the record with the destination columns added; message.Record is not modified
func FlatRecord(message *types.Message) map[string]any {
	flat := make(map[string]any, len(message.Record)+2)
	for key, value := range message.Record {
		flat[key] = value
	}
	flat[constants.OlakeTimestamp] = message.TimeExtracted
	flat[constants.OlakeVersion] = message.Version
	return flat
}

// CheckWritable creates path if needed and verifies a file can be written inside it
func CheckWritable(path string) error {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create path[%s]: %s", path, err)
	}
	probe, err := os.CreateTemp(path, ".olake_check_*")
	if err != nil {
		return fmt.Errorf("path[%s] is not writable: %s", path, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}
