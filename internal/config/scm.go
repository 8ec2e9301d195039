package config

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Keys of the per-material configuration sent by the orchestrator.
const (
	KeyURL             = "url"
	KeyUsername        = "username"
	KeyPassword        = "password"
	KeyAPIURL          = "apiUrl"
	KeyProjectName     = "projectName"
	KeyDefaultBranch   = "defaultBranch"
	KeyShallowClone    = "shallowClone"
	KeyBranchWhitelist = "branchwhitelist"
	KeyBranchBlacklist = "branchblacklist"
)

// DefaultBranch is used when a material does not name one.
const DefaultBranch = "master"

const mask = "****"

// SCM is the configuration of a single polled material.
type SCM struct {
	URL             string
	Username        string
	Password        string
	APIURL          string
	ProjectName     string
	DefaultBranch   string
	ShallowClone    bool
	BranchWhitelist string
	BranchBlacklist string
}

// SCMFromValues builds an SCM from the orchestrator's key/value pairs.
func SCMFromValues(values map[string]string) *SCM {
	shallow, _ := strconv.ParseBool(strings.TrimSpace(values[KeyShallowClone]))
	return &SCM{
		URL:             strings.TrimSpace(values[KeyURL]),
		Username:        values[KeyUsername],
		Password:        values[KeyPassword],
		APIURL:          strings.TrimSpace(values[KeyAPIURL]),
		ProjectName:     strings.TrimSpace(values[KeyProjectName]),
		DefaultBranch:   strings.TrimSpace(values[KeyDefaultBranch]),
		ShallowClone:    shallow,
		BranchWhitelist: values[KeyBranchWhitelist],
		BranchBlacklist: values[KeyBranchBlacklist],
	}
}

// Branch returns the branch to clone, defaulting to master.
func (s *SCM) Branch() string {
	if s.DefaultBranch == "" {
		return DefaultBranch
	}
	return s.DefaultBranch
}

// EffectiveURL returns the clone URL with credentials embedded for http(s)
// remotes. Other URLs are returned unchanged.
func (s *SCM) EffectiveURL() string {
	if s.Username == "" && s.Password == "" {
		return s.URL
	}
	parsed, err := url.Parse(s.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return s.URL
	}
	if s.Password == "" {
		parsed.User = url.User(s.Username)
	} else {
		parsed.User = url.UserPassword(s.Username, s.Password)
	}
	return parsed.String()
}

// Sanitize removes credentials from a message before it leaves the process.
func (s *SCM) Sanitize(msg string) string {
	if msg == "" {
		return msg
	}
	if eff := s.EffectiveURL(); eff != s.URL {
		msg = strings.ReplaceAll(msg, eff, s.redactedURL())
	}
	if strings.TrimSpace(s.Password) != "" {
		msg = strings.ReplaceAll(msg, s.Password, mask)
		msg = strings.ReplaceAll(msg, url.QueryEscape(s.Password), mask)
	}
	if strings.TrimSpace(s.Username) != "" {
		msg = strings.ReplaceAll(msg, s.Username, mask)
	}
	return msg
}

// SanitizeError returns err with its message scrubbed. The result no longer
// wraps err.
func (s *SCM) SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(s.Sanitize(err.Error()))
}

func (s *SCM) redactedURL() string {
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return mask
	}
	parsed.User = url.UserPassword(mask, mask)
	return parsed.String()
}

// RepositoryName returns the last path segment of the URL without a .git
// suffix.
func (s *SCM) RepositoryName() string {
	trimmed := strings.TrimSuffix(strings.TrimRight(s.URL, "/"), ".git")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// OwnerAndRepository returns the two trailing path segments of the URL, as
// used by hosted providers (owner/repo). Owner is empty if it cannot be
// determined.
func (s *SCM) OwnerAndRepository() (string, string) {
	trimmed := strings.TrimSuffix(strings.TrimRight(s.URL, "/"), ".git")
	repo := s.RepositoryName()
	rest := strings.TrimSuffix(trimmed, repo)
	rest = strings.TrimRight(rest, "/:")
	if i := strings.LastIndexAny(rest, "/:"); i >= 0 {
		return rest[i+1:], repo
	}
	return "", repo
}
