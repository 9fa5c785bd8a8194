package fs

// MountOptions configures how Mount opens and interprets a device image.
// This collapses a bitmask of mount flags down to the one toggle that
// actually matters for a block device backend: whether writes are allowed
// at all.
type MountOptions struct {
	// ReadOnly rejects every mutating operation (Mkdir, Mknod, Write,
	// Unlink) with ErrAccess, and makes Unmount close the driver without
	// writing anything back.
	ReadOnly bool
}
