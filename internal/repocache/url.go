package repocache

import (
	"path/filepath"
	"regexp"
	"strings"
)

var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9._-]+:`)

// RepoURL turns a repository identifier into a clone URL. URLs, scp-style
// addresses and local paths are returned unchanged; a bare owner/name becomes
// git@<host>:owner/name.git.
func RepoURL(host, repo string) string {
	switch {
	case strings.Contains(repo, "://"),
		scpLike.MatchString(repo),
		filepath.IsAbs(repo),
		strings.HasPrefix(repo, "./"),
		strings.HasPrefix(repo, "../"),
		strings.HasPrefix(repo, "~"):
		return repo
	}
	return "git@" + host + ":" + strings.TrimSuffix(repo, ".git") + ".git"
}

func isHTTP(url string) bool {
	return strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")
}
