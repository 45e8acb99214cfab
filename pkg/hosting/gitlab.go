package hosting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/gitutil"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/stringutil"
)

// gitlabService talks to the GitLab REST v4 API. No GitLab client library
// appears anywhere in the reference pack (see DESIGN.md), so this is one of
// the few components built directly on net/http; it mirrors githubService's
// shape so Publish can treat every Service identically.
type gitlabService struct {
	http    *http.Client
	baseURI string
	token   string
}

var gitlabCapabilities = []Capability{CapabilityGitHosting, CapabilityReleases, CapabilityUsers}

func newGitLabService(options map[string]string) (Service, error) {
	base := options[OptionBaseURI]
	if base == "" {
		base = "https://gitlab.com/api/v4"
	}
	token := options[OptionAuthenticationToken]
	if token == "" {
		return nil, nyxerr.NewSecurityError("gitlab service requires AUTHENTICATION_TOKEN", nil, "services.<name>.options.AUTHENTICATION_TOKEN")
	}
	return &gitlabService{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURI: base,
		token:   token,
	}, nil
}

func (s *gitlabService) Name() string              { return "gitlab" }
func (s *gitlabService) Capabilities() []Capability { return gitlabCapabilities }

func (s *gitlabService) do(method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, s.baseURI+path, body)
	if err != nil {
		return nyxerr.NewServiceError("gitlab", "could not build request", err)
	}
	req.Header.Set("PRIVATE-TOKEN", s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nyxerr.NewServiceError("gitlab", method+" "+path+" failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nyxerr.NewServiceError("gitlab", "could not read response body", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nyxerr.NewSecurityError("gitlab rejected credentials ("+strconv.Itoa(resp.StatusCode)+")", nil, "services.<name>.options.AUTHENTICATION_TOKEN")
	}
	if resp.StatusCode >= 400 {
		msg := stringutil.Truncate(string(data), 500)
		if gitutil.IsAuthError(msg) {
			return nyxerr.NewSecurityError("gitlab rejected credentials", nil, "services.<name>.options.AUTHENTICATION_TOKEN")
		}
		return nyxerr.NewServiceError("gitlab", fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, msg), nil)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nyxerr.NewServiceError("gitlab", "could not decode response", err)
	}
	return nil
}

func (s *gitlabService) GetAuthenticatedUser() (*User, error) {
	if err := requireCapability(s, CapabilityUsers, "getAuthenticatedUser"); err != nil {
		return nil, err
	}
	var body struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	err := withReadRetry("gitlab", "getAuthenticatedUser", func() error {
		return s.do(http.MethodGet, "/user", nil, &body)
	})
	if err != nil {
		return nil, err
	}
	return &User{ID: strconv.Itoa(body.ID), Login: body.Username}, nil
}

func (s *gitlabService) CreateRelease(owner, repo, tag, title, body string) (*Release, error) {
	if err := requireCapability(s, CapabilityReleases, "createRelease"); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"tag_name":    tag,
		"name":        title,
		"description": body,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, nyxerr.NewServiceError("gitlab", "could not encode release payload", err)
	}
	var resp gitlabReleaseResponse
	path := "/projects/" + projectPath(owner, repo) + "/releases"
	if err := s.do(http.MethodPost, path, bytes.NewReader(encoded), &resp); err != nil {
		return nil, err
	}
	return resp.toRelease(), nil
}

func (s *gitlabService) GetReleaseByTag(owner, repo, tag string) (*Release, error) {
	if err := requireCapability(s, CapabilityReleases, "getReleaseByTag"); err != nil {
		return nil, err
	}
	var resp gitlabReleaseResponse
	path := "/projects/" + projectPath(owner, repo) + "/releases/" + url.PathEscape(tag)
	err := withReadRetry("gitlab", "getReleaseByTag", func() error {
		return s.do(http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.toRelease(), nil
}

// PublishReleaseAssets uploads each file to the project's generic upload
// endpoint, then attaches the resulting URL to the release as an asset
// link: GitLab releases carry links to uploaded files rather than file
// bytes directly.
func (s *gitlabService) PublishReleaseAssets(owner, repo string, release *Release, assetPaths []string) error {
	if err := requireCapability(s, CapabilityReleases, "publishReleaseAssets"); err != nil {
		return err
	}
	for _, path := range assetPaths {
		assetURL, err := s.uploadProjectFile(owner, repo, path)
		if err != nil {
			return err
		}
		if err := s.createReleaseLink(owner, repo, release.Tag, filepath.Base(path), assetURL); err != nil {
			return err
		}
	}
	return nil
}

func (s *gitlabService) uploadProjectFile(owner, repo, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nyxerr.NewIOError("could not read release asset \""+path+"\"", err)
	}
	name := filepath.Base(path)
	hostLog.Printf("gitlab: uploading release asset %q (%d bytes)", name, len(data))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", nyxerr.NewServiceError("gitlab", "could not build upload form", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", nyxerr.NewServiceError("gitlab", "could not build upload form", err)
	}
	if err := w.Close(); err != nil {
		return "", nyxerr.NewServiceError("gitlab", "could not build upload form", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURI+"/projects/"+projectPath(owner, repo)+"/uploads", &buf)
	if err != nil {
		return "", nyxerr.NewServiceError("gitlab", "could not build upload request", err)
	}
	req.Header.Set("PRIVATE-TOKEN", s.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.http.Do(req)
	if err != nil {
		return "", nyxerr.NewServiceError("gitlab", "publishReleaseAssets upload failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nyxerr.NewServiceError("gitlab", "could not read upload response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", nyxerr.NewSecurityError("gitlab rejected credentials uploading release asset", nil, "services.<name>.options.AUTHENTICATION_TOKEN")
	}
	if resp.StatusCode >= 400 {
		return "", nyxerr.NewServiceError("gitlab", fmt.Sprintf("upload returned %d: %s", resp.StatusCode, stringutil.Truncate(string(body), 500)), nil)
	}

	var uploaded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", nyxerr.NewServiceError("gitlab", "could not decode upload response", err)
	}
	return s.baseURI + "/projects/" + projectPath(owner, repo) + uploaded.URL, nil
}

func (s *gitlabService) createReleaseLink(owner, repo, tag, name, assetURL string) error {
	payload := map[string]interface{}{"name": name, "url": assetURL}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nyxerr.NewServiceError("gitlab", "could not encode release link payload", err)
	}
	path := "/projects/" + projectPath(owner, repo) + "/releases/" + url.PathEscape(tag) + "/assets/links"
	return s.do(http.MethodPost, path, bytes.NewReader(encoded), nil)
}

func projectPath(owner, repo string) string {
	return url.PathEscape(owner + "/" + repo)
}

type gitlabReleaseResponse struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Links       struct {
		Self string `json:"self"`
	} `json:"_links"`
}

func (r gitlabReleaseResponse) toRelease() *Release {
	return &Release{Tag: r.TagName, Name: r.Name, Body: r.Description, URL: r.Links.Self}
}
