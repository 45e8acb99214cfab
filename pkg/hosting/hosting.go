// Package hosting implements the Hosting Service Abstraction:
// a capability-based provider interface the Pipeline Orchestrator's Publish
// phase drives, with concrete GitHub and GitLab backends.
package hosting

import (
	"time"

	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

var hostLog = logger.New("nyx:hosting")

// Capability names an operation group a Service may support.
type Capability string

const (
	CapabilityGitHosting Capability = "GIT_HOSTING"
	CapabilityReleases   Capability = "RELEASES"
	CapabilityUsers      Capability = "USERS"
)

// Well-known option keys; all values are template-resolved by
// the caller before Options is built.
const (
	OptionAuthenticationToken = "AUTHENTICATION_TOKEN"
	OptionRepositoryName      = "REPOSITORY_NAME"
	OptionRepositoryOwner     = "REPOSITORY_OWNER"
	OptionBaseURI             = "BASE_URI"
)

// User is the minimal identity returned by getAuthenticatedUser.
type User struct {
	ID    string
	Login string
}

// Release is the minimal release representation createRelease/
// getReleaseByTag exchange.
type Release struct {
	ID   string
	Tag  string
	Name string
	Body string
	URL  string
}

// Service is a hosting provider: GitHub or GitLab today, each declaring the
// subset of Capability it supports. Calling an operation outside a
// provider's declared capabilities fails UnsupportedOperationError rather
// than attempting the call.
type Service interface {
	// Name identifies the provider for error messages and State caches.
	Name() string
	// Capabilities reports what this provider supports.
	Capabilities() []Capability

	GetAuthenticatedUser() (*User, error)
	CreateRelease(owner, repo, tag, title, body string) (*Release, error)
	GetReleaseByTag(owner, repo, tag string) (*Release, error)
	// PublishReleaseAssets uploads each local file in assetPaths to the
	// given release, named after its base filename.
	PublishReleaseAssets(owner, repo string, release *Release, assetPaths []string) error
}

// NewService constructs a Service for the named provider type ("github" or
// "gitlab") from a template-resolved options map.
func NewService(providerType string, options map[string]string) (Service, error) {
	switch providerType {
	case "github":
		return newGitHubService(options)
	case "gitlab":
		return newGitLabService(options)
	default:
		return nil, nyxerr.NewConfigurationError("unknown hosting service type \""+providerType+"\"", nil, "services.<name>.type")
	}
}

// hasCapability reports whether caps contains want.
func hasCapability(caps []Capability, want Capability) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}

func requireCapability(svc Service, want Capability, op string) error {
	if !hasCapability(svc.Capabilities(), want) {
		return nyxerr.NewUnsupportedOperationError(
			svc.Name()+" does not support "+string(want)+" (operation "+op+")",
			"services.<name>.type",
		)
	}
	return nil
}

// retryBackoffs is the fixed exponential backoff schedule for idempotent
// reads: 3 attempts, waits of 1s then 4s between them.
var retryBackoffs = []time.Duration{time.Second, 4 * time.Second}

// withReadRetry runs fn up to len(retryBackoffs)+1 times, sleeping the
// scheduled backoff between attempts. Only idempotent GET-style reads call
// this; writes are never retried.
func withReadRetry(service, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= len(retryBackoffs); attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == len(retryBackoffs) {
			break
		}
		hostLog.Printf("%s.%s failed (attempt %d/%d), retrying in %s: %v", service, op, attempt+1, len(retryBackoffs)+1, retryBackoffs[attempt], lastErr)
		time.Sleep(retryBackoffs[attempt])
	}
	return lastErr
}
