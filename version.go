package main

import (
	"fmt"
	"strconv"
)

var (
	Version   string = "0.1.0"
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildID   string = "unknown"
	buildDate string = "unknown"
)

func GitSHA1() string {
	return gitSHA1
}

func GitDirty() string {
	return gitDirty
}

func BuildIdRaw() string {
	return buildID + buildDate + gitSHA1 + gitDirty
}

// VersionString appends the git commit and working tree status when they were stamped at link time.
func VersionString() string {
	version := Version
	if sha1Int, err := strconv.ParseUint(GitSHA1(), 16, 64); err == nil && sha1Int != 0 {
		version = fmt.Sprintf("%s (git:%s", version, GitSHA1())
		if dirtyInt, err := strconv.ParseInt(GitDirty(), 10, 64); err == nil && dirtyInt != 0 {
			version += "-dirty"
		}
		version += ")"
	}
	return version
}
