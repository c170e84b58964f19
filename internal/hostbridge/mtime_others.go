//go:build !unix

// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package hostbridge

import (
	"os"
	"time"
)

func setMtime(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
