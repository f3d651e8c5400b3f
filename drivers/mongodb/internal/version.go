package driver

import (
	"time"

	"github.com/datazip-inc/olake-mongo/types"
)

// assignVersion keeps the version of an interrupted or completed earlier run and picks a new
// one, now in milliseconds, when the stream has none. The version is written to the bookmark
// before anything is emitted.
func assignVersion(bookmark *types.Bookmark, now func() time.Time) (version int64, firstRun bool) {
	firstRun = bookmark.IsFirstRun()
	if firstRun {
		bookmark.SetVersion(now().UnixMilli())
	}
	return *bookmark.Version, firstRun
}
