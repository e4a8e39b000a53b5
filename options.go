package typedstore

import (
	"log/slog"
	"time"
)

const defaultBucket = "data"

type Options struct {
	Logger  *slog.Logger
	Verbose bool

	// IsTesting trades durability for speed: no fsync, small initial mmap.
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration // how long OpenBolt waits for the file lock

	// Bucket names the bolt bucket holding the records.
	Bucket string
}

func (opt Options) logger() *slog.Logger {
	if opt.Logger != nil {
		return opt.Logger
	}
	return slog.Default()
}

func (opt Options) bucket() string {
	if opt.Bucket != "" {
		return opt.Bucket
	}
	return defaultBucket
}
