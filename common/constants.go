package common

// PageSize is the fixed size in bytes of every page moved between the
// buffer pool and the disk manager.
const PageSize = 4096

// InvalidPageID is the sentinel page id meaning "no page" (an empty tree's
// root, a leaf's missing next pointer, an internal page's missing parent).
const InvalidPageID int32 = -1

// InvalidFrameID is the sentinel frame id meaning "no frame". The buffer
// pool reports an unobtainable frame through an error, not this value.
const InvalidFrameID int32 = -1
