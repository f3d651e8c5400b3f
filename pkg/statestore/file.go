package statestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/mitchellh/hashstructure"
)

// File keeps the state as a JSON document on disk. Checkpoints identical to the last
// written one are skipped.
type File struct {
	path     string
	lastHash uint64
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load(_ context.Context) (*types.State, error) {
	state := types.NewState()
	if f.path == "" {
		return state, nil
	}
	if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
		logger.Infof("no state found at %s, starting fresh", f.path)
		return state, nil
	}
	if err := utils.UnmarshalFile(f.path, state, false); err != nil {
		return nil, err
	}
	return validated(state, f.path)
}

func (f *File) Save(_ context.Context, state *types.State) error {
	if f.path == "" {
		return nil
	}
	hash, err := hashstructure.Hash(state, nil)
	if err != nil {
		return fmt.Errorf("failed to hash state: %s", err)
	}
	if hash == f.lastHash {
		logger.Debugf("state unchanged, skipping write to %s", f.path)
		return nil
	}
	if err := logger.FileLoggerWithPath(state, f.path); err != nil {
		return fmt.Errorf("failed to write state to %s: %s", f.path, err)
	}
	f.lastHash = hash
	return nil
}

func (f *File) Close(_ context.Context) error {
	return nil
}
