package release

import "strings"

// OS is the operating system family derived from a client platform string
type OS string

// Arch is the CPU architecture derived from a client platform string
type Arch string

// Defining the platforms we know how to match
const (
	OSMac     OS = "mac"
	OSWindows OS = "windows"
	OSLinux   OS = "linux"
	OSUnknown OS = "unknown"

	ArchARM64   Arch = "arm64"
	ArchX64     Arch = "x64"
	ArchX86     Arch = "x86"
	ArchUnknown Arch = "unknown"
)

// Platform is computed once per request and never stored
type Platform struct {
	OS   OS   `json:"os"`
	Arch Arch `json:"arch"`
}

// DetectPlatform sniffs the OS and architecture out of a user-agent like string.
// Browsers on mac rarely report Apple Silicon, so mac defaults to x64.
func DetectPlatform(s string) Platform {
	s = strings.ToLower(s)
	switch {
	case containsAny(s, "mac", "darwin"):
		arch := ArchX64
		if containsAny(s, "arm", "apple silicon") {
			arch = ArchARM64
		}
		return Platform{OS: OSMac, Arch: arch}
	case strings.Contains(s, "win"):
		arch := ArchX86
		if containsAny(s, "arm", "wow64") {
			arch = ArchARM64
		} else if containsAny(s, "x64", "win64") {
			arch = ArchX64
		}
		return Platform{OS: OSWindows, Arch: arch}
	case strings.Contains(s, "linux"):
		arch := ArchX86
		if containsAny(s, "arm", "aarch64") {
			arch = ArchARM64
		} else if containsAny(s, "x86_64", "x64") {
			arch = ArchX64
		}
		return Platform{OS: OSLinux, Arch: arch}
	}
	return Platform{OS: OSUnknown, Arch: ArchUnknown}
}

type namePattern struct {
	contains []string
	suffixes []string
}

var osPatterns = map[OS]namePattern{
	OSMac: {
		contains: []string{"mac", "darwin", "macos"},
		suffixes: []string{".dmg", ".pkg"},
	},
	OSWindows: {
		contains: []string{"win", "windows"},
		suffixes: []string{".exe", ".msi"},
	},
	OSLinux: {
		contains: []string{"linux"},
		suffixes: []string{".appimage", ".deb", ".rpm", ".tar.gz"},
	},
}

var archTokens = map[Arch][]string{
	ArchARM64: {"arm64", "apple-silicon", "m1", "m2", "silicon"},
	ArchX64:   {"x64", "intel", "amd64"},
}

// MatchesOS reports whether an asset file name looks like a build for the platform's OS.
// Every name matches an unknown OS.
func (p Platform) MatchesOS(name string) bool {
	pattern, ok := osPatterns[p.OS]
	if !ok {
		return true
	}
	name = strings.ToLower(name)
	if containsAny(name, pattern.contains...) {
		return true
	}
	for _, suffix := range pattern.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// MatchesArch reports whether an asset file name carries a token for the platform's architecture
func (p Platform) MatchesArch(name string) bool {
	tokens, ok := archTokens[p.Arch]
	if !ok {
		return false
	}
	return containsAny(strings.ToLower(name), tokens...)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
