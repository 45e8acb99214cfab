package hosting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/nyxreleaseng/nyx/pkg/gitutil"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/stringutil"
)

// githubService talks to the GitHub REST API via cli/go-gh's authenticated
// REST client. Release-asset uploads hit uploads.github.com, a host the
// client's own host resolution never targets, so those go through a plain
// http.Client carrying the same bearer token instead.
type githubService struct {
	client     *api.RESTClient
	http       *http.Client
	token      string
	uploadHost string // overridden by tests; defaults to uploads.github.com
}

var githubCapabilities = []Capability{CapabilityGitHosting, CapabilityReleases, CapabilityUsers}

func newGitHubService(options map[string]string) (Service, error) {
	token := options[OptionAuthenticationToken]
	opts := api.ClientOptions{
		AuthToken: token,
	}
	if host := options[OptionBaseURI]; host != "" {
		opts.Host = host
	}
	client, err := api.NewRESTClient(opts)
	if err != nil {
		return nil, nyxerr.NewSecurityError("could not build GitHub REST client", err, "services.<name>.options.AUTHENTICATION_TOKEN")
	}
	return &githubService{
		client:     client,
		http:       &http.Client{Timeout: 60 * time.Second},
		token:      token,
		uploadHost: "https://uploads.github.com",
	}, nil
}

func (s *githubService) Name() string                  { return "github" }
func (s *githubService) Capabilities() []Capability     { return githubCapabilities }

func (s *githubService) GetAuthenticatedUser() (*User, error) {
	if err := requireCapability(s, CapabilityUsers, "getAuthenticatedUser"); err != nil {
		return nil, err
	}
	var body struct {
		ID    int    `json:"id"`
		Login string `json:"login"`
	}
	err := withReadRetry("github", "getAuthenticatedUser", func() error {
		return s.client.Get("user", &body)
	})
	if err != nil {
		return nil, classifyGitHubError("getAuthenticatedUser", err)
	}
	return &User{ID: fmt.Sprintf("%d", body.ID), Login: body.Login}, nil
}

func (s *githubService) CreateRelease(owner, repo, tag, title, body string) (*Release, error) {
	if err := requireCapability(s, CapabilityReleases, "createRelease"); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"tag_name": tag,
		"name":     title,
		"body":     body,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, nyxerr.NewServiceError("github", "could not encode release payload", err)
	}
	var resp githubReleaseResponse
	endpoint := fmt.Sprintf("repos/%s/%s/releases", owner, repo)
	if err := s.client.Post(endpoint, bytes.NewReader(encoded), &resp); err != nil {
		return nil, classifyGitHubError("createRelease", err)
	}
	return resp.toRelease(), nil
}

func (s *githubService) GetReleaseByTag(owner, repo, tag string) (*Release, error) {
	if err := requireCapability(s, CapabilityReleases, "getReleaseByTag"); err != nil {
		return nil, err
	}
	var resp githubReleaseResponse
	endpoint := fmt.Sprintf("repos/%s/%s/releases/tags/%s", owner, repo, tag)
	err := withReadRetry("github", "getReleaseByTag", func() error {
		return s.client.Get(endpoint, &resp)
	})
	if err != nil {
		return nil, classifyGitHubError("getReleaseByTag", err)
	}
	return resp.toRelease(), nil
}

func (s *githubService) PublishReleaseAssets(owner, repo string, release *Release, assetPaths []string) error {
	if err := requireCapability(s, CapabilityReleases, "publishReleaseAssets"); err != nil {
		return err
	}
	for _, path := range assetPaths {
		if err := s.uploadReleaseAsset(owner, repo, release, path); err != nil {
			return err
		}
	}
	return nil
}

// uploadReleaseAsset POSTs the file at path to GitHub's release-asset
// upload endpoint, which lives on uploads.github.com rather than
// api.github.com.
func (s *githubService) uploadReleaseAsset(owner, repo string, release *Release, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nyxerr.NewIOError("could not read release asset \""+path+"\"", err)
	}
	name := filepath.Base(path)
	hostLog.Printf("github: uploading release asset %q (%d bytes) to release %s", name, len(data), release.ID)

	uploadURL := fmt.Sprintf("%s/repos/%s/%s/releases/%s/assets?name=%s",
		s.uploadHost, owner, repo, release.ID, url.QueryEscape(name))
	req, err := http.NewRequest(http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nyxerr.NewServiceError("github", "could not build asset upload request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", assetContentType(name))
	req.ContentLength = int64(len(data))

	resp, err := s.http.Do(req)
	if err != nil {
		return nyxerr.NewServiceError("github", "publishReleaseAssets failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nyxerr.NewSecurityError("github rejected credentials uploading release asset", nil, "services.<name>.options.AUTHENTICATION_TOKEN")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nyxerr.NewServiceError("github", fmt.Sprintf("publishReleaseAssets returned %d: %s", resp.StatusCode, stringutil.Truncate(string(body), 500)), nil)
	}
	return nil
}

// assetContentType guesses a release asset's MIME type from its extension,
// falling back to a generic binary stream.
func assetContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type githubReleaseResponse struct {
	ID      int    `json:"id"`
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

func (r githubReleaseResponse) toRelease() *Release {
	return &Release{ID: fmt.Sprintf("%d", r.ID), Tag: r.TagName, Name: r.Name, Body: r.Body, URL: r.HTMLURL}
}

// classifyGitHubError distinguishes a credential failure from a generic
// service failure, returning nyxerr's SecurityError or ServiceError accordingly.
func classifyGitHubError(op string, err error) error {
	msg := stringutil.Truncate(err.Error(), 500)
	if gitutil.IsAuthError(msg) {
		return nyxerr.NewSecurityError("github "+op+" rejected credentials", err, "services.<name>.options.AUTHENTICATION_TOKEN")
	}
	return nyxerr.NewServiceError("github", op+" failed", err)
}
