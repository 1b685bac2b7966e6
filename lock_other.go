//go:build !unix

package knoxvfs

import "os"

// lockFile is a no-op off unix: advisory locking is best-effort only.
func lockFile(f *os.File) error { return nil }

func unlockFile(f *os.File) error { return nil }
