//go:build !unix

// Package mmfile maps hive and log files read-only.
package mmfile

import "os"

// Map reads the entire file where mmap is not used. The release function is
// a no-op.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
