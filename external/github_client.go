package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/healthparse/landing/release"

	"github.com/google/go-github/v60/github"
	extErrors "github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const userAgent = "HealthParse-Landing-Page"

// GitHubOptions describes which repository publishes the desktop builds
type GitHubOptions struct {
	Owner string
	Repo  string
	Token string

	// BaseURL overrides https://api.github.com/, mostly for tests
	BaseURL string
	// HTTPClient is the transport underneath the token source and the
	// client used to follow asset redirects. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// GitHubReleases reads releases of one repository
type GitHubReleases struct {
	client   *github.Client
	download *http.Client
	owner    string
	repo     string
}

var _ release.Source = &GitHubReleases{}

// NewGitHubReleases returns a release.Source backed by the GitHub REST API
func NewGitHubReleases(opt GitHubOptions) (*GitHubReleases, error) {
	if opt.Owner == "" || opt.Repo == "" || opt.Token == "" {
		return nil, fmt.Errorf("GitHub owner, repo and token are required")
	}
	base := opt.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	tokenClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opt.Token,
	}))

	gh := github.NewClient(tokenClient)
	gh.UserAgent = userAgent
	if opt.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(opt.BaseURL, "/") + "/")
		if err != nil {
			return nil, extErrors.Wrap(err, "Invalid GitHub base URL")
		}
		gh.BaseURL = u
	}

	return &GitHubReleases{
		client:   gh,
		download: base,
		owner:    opt.Owner,
		repo:     opt.Repo,
	}, nil
}

// Latest returns the latest published release
func (g *GitHubReleases) Latest(ctx context.Context) (*release.Release, error) {
	rel, _, err := g.client.Repositories.GetLatestRelease(ctx, g.owner, g.repo)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot fetch latest release from GitHub")
	}
	assets := make([]release.Asset, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		assets = append(assets, release.Asset{
			ID:   a.GetID(),
			Name: a.GetName(),
			Size: int64(a.GetSize()),
		})
	}
	return &release.Release{
		TagName:     rel.GetTagName(),
		Name:        rel.GetName(),
		PublishedAt: rel.GetPublishedAt().Time,
		Assets:      assets,
	}, nil
}

// Open streams the asset content. The redirect to storage is followed without the API token.
func (g *GitHubReleases) Open(ctx context.Context, assetID int64) (io.ReadCloser, error) {
	rc, redirectURL, err := g.client.Repositories.DownloadReleaseAsset(ctx, g.owner, g.repo, assetID, g.download)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot download release asset")
	}
	if rc == nil {
		return nil, fmt.Errorf("GitHub returned redirect %q without content", redirectURL)
	}
	return rc, nil
}

// AssetURL is the API location of an asset
func (g *GitHubReleases) AssetURL(assetID int64) string {
	return fmt.Sprintf("%srepos/%s/%s/releases/assets/%d", g.client.BaseURL.String(), g.owner, g.repo, assetID)
}
