// Package version holds filepoolctl's build-time version stamp.
package version

import "fmt"

var (
	version      = "0.1-dev"
	revision     = "$Format:%h$"
	revisionDate = "$Format:%as$"
)

// Version returns the version in format - `VERSION (REVISIONDATE REVISION)`
// value is assigned by the build's ldflags.
func Version() string {
	return fmt.Sprintf("%v (%v %v)", version, revisionDate, revision)
}
