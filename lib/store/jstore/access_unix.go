//go:build unix

package jstore

import "golang.org/x/sys/unix"

// checkAccess reports whether the current process may read and write path
func checkAccess(path string) error {
	return unix.Access(path, unix.R_OK|unix.W_OK)
}

// checkDirAccess reports whether the current process may create files in dir
func checkDirAccess(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
