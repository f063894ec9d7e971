//go:build !unix

package jstore

import "os"

// checkAccess reports whether the current process may read and write path
func checkAccess(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

// checkDirAccess reports whether the current process may create files in dir
func checkDirAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".jsondb-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
