// Package version tracks the build identity of ulog-decoder, in the same
// spirit as pktconfig/version: a string overridable at link time via
// `-ldflags "-X .../version.appBuild=..."` with a hand-rolled fallback for
// plain `go build` invocations.
package version

import (
	"fmt"
	"regexp"
	"strings"
)

// appBuild is set via -ldflags at release build time. It MUST only contain
// characters from the semantic versioning alphabet.
var appBuild string

var (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0
	version       = "0.1.0-custom"
	custom        = true
	prerelease    = false
	dirty         = false
)

func init() {
	if len(appBuild) == 0 {
		return
	}
	tag := "-custom"
	if _, err := fmt.Sscanf(appBuild, "ulog-decoder-v%d.%d.%d", &appMajor, &appMinor, &appPatch); err == nil {
		tag = ""
		custom = false
		if x := regexp.MustCompile(`-[0-9]+-g[0-9a-f]{8}`).FindString(appBuild); len(x) > 0 {
			tag += "-" + x[strings.LastIndex(x, "-")+2:]
			prerelease = true
		}
		if strings.Contains(appBuild, "-dirty") {
			tag += "-dirty"
			dirty = true
		}
	}
	version = fmt.Sprintf("%d.%d.%d%s", appMajor, appMinor, appPatch, tag)
}

// IsCustom reports whether this binary was built outside of the release process.
func IsCustom() bool { return custom }

// IsDirty reports whether the working tree had local modifications at build time.
func IsDirty() bool { return dirty }

// IsPrerelease reports whether this is a tagged pre-release build.
func IsPrerelease() bool { return prerelease }

// String returns the dotted version string used in log headers and --version output.
func String() string { return version }
