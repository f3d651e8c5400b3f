package statestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/datazip-inc/olake-mongo/types"
)

// Store loads the state once at start and persists every checkpoint handed to it
type Store interface {
	Load(ctx context.Context) (*types.State, error)
	Save(ctx context.Context, state *types.State) error
	Close(ctx context.Context) error
}

// New picks the postgres backend for postgres:// urls and the file backend otherwise
func New(ctx context.Context, url, path string) (Store, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return NewPostgres(ctx, url, path)
	}
	if url != "" {
		return nil, fmt.Errorf("unsupported state store url scheme: %s", url)
	}
	return NewFile(path), nil
}

func validated(state *types.State, source string) (*types.State, error) {
	if state.Bookmarks == nil {
		state.Bookmarks = make(map[string]*types.Bookmark)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("state in %s can not be resumed from: %w", source, err)
	}
	return state, nil
}
