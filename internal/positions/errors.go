package positions

import "errors"

// ErrVersionConflict is returned by stores when an update loses an
// optimistic-concurrency race: the record changed since it was read.
var ErrVersionConflict = errors.New("position was modified by another writer")
