package common

import "errors"

// ErrPoolExhausted is returned by NewPage/FetchPage when no frame is
// obtainable. The other failure kinds in spec.md §7's error table
// (NotResident, AlreadyUnpinned, PinnedOnDelete, DuplicateKey, KeyAbsent)
// are signaled as plain bool/nil per their own contract, not sentinels.
var ErrPoolExhausted = errors.New("buffer pool: no frame available")
