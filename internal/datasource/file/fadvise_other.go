//go:build !linux

package file

import "os"

// adviseSequential is a no-op off Linux.
func adviseSequential(*os.File) {}
