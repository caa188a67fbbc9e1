// Package version holds build information set at link time:
//
//	go build -ldflags "-X github.com/parserlab/ocrdiff/version.GitRelease=v0.3.0 \
//	  -X github.com/parserlab/ocrdiff/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/parserlab/ocrdiff/version.GitCommitDate=$(git log -1 --format=%cs)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag.
	GitRelease = "dev"
	// GitCommit is the short commit hash.
	GitCommit = "unknown"
	// GitCommitDate is the commit date.
	GitCommitDate = "unknown"
	// GoInfo is the toolchain and platform the binary was built for.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)
