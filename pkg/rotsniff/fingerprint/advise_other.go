//go:build !linux

package fingerprint

import "os"

func adviseSequential(*os.File) {}

func adviseDone(*os.File) {}
