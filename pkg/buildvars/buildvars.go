// Package buildvars contains the variables set at build time through
// -ldflags, for example:
//
//	go build -ldflags "-X github.com/xaionaro-go/screensnap/pkg/buildvars.Version=v0.1.0"
package buildvars

import (
	"time"
)

var (
	Version         string
	GitCommit       string
	BuildDateString string
)

// BuildDate parses BuildDateString (RFC3339); it returns the zero
// time if the date was not set or is malformed.
func BuildDate() time.Time {
	t, err := time.Parse(time.RFC3339, BuildDateString)
	if err != nil {
		return time.Time{}
	}
	return t
}
