package release

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	resp "github.com/healthparse/landing/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// Source is the release host. Implementations live in package external.
type Source interface {
	Latest(ctx context.Context) (*Release, error)
	Open(ctx context.Context, assetID int64) (io.ReadCloser, error)
	AssetURL(assetID int64) string
}

// Options contains the configuration for Service router
type Options struct {
	// Source may be nil when the release host is not configured,
	// downloads then fail with a configuration error
	Source Source
	Logger *zap.Logger
}

// Service is the download API router
type Service struct {
	Options
}

// NewService will create an instance of the download API router
func NewService(option Options) (*Service, error) {
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		Options: option,
	}, nil
}

// DownloadInfo is returned instead of the file when the client asks for info=true
type DownloadInfo struct {
	Success        bool      `json:"success"`
	DownloadURL    string    `json:"downloadUrl"`
	FileName       string    `json:"fileName"`
	FileSize       int64     `json:"fileSize"`
	ReleaseVersion string    `json:"releaseVersion"`
	ReleaseName    string    `json:"releaseName"`
	PublishedAt    time.Time `json:"publishedAt"`
	Platform       Platform  `json:"platform"`
}

func (s *Service) downloadLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.Source == nil {
		s.Logger.Error("Release host is not configured")
		resp.WriteError(w, r, resp.ErrReleaseConfig())
		return
	}

	rel, err := s.Source.Latest(ctx)
	if err != nil {
		s.Logger.Error("Unable to fetch latest release",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to fetch release information from GitHub"))
		return
	}
	if len(rel.Assets) == 0 {
		resp.WriteError(w, r, resp.ErrNoAssets())
		return
	}

	platform := r.URL.Query().Get("platform")
	if platform == "" {
		platform = r.UserAgent()
	}
	asset := SelectAsset(platform, rel.Assets)

	logger := s.Logger.With(
		zap.String("ReleaseVersion", rel.TagName),
		zap.Int64("AssetID", asset.ID),
		zap.String("AssetName", asset.Name),
	)

	if r.URL.Query().Get("info") == "true" {
		resp.WriteResponse(w, r, DownloadInfo{
			Success:        true,
			DownloadURL:    s.Source.AssetURL(asset.ID),
			FileName:       asset.Name,
			FileSize:       asset.Size,
			ReleaseVersion: rel.TagName,
			ReleaseName:    rel.Name,
			PublishedAt:    rel.PublishedAt,
			Platform:       DetectPlatform(platform),
		})
		return
	}

	body, err := s.Source.Open(ctx, asset.ID)
	if err != nil {
		logger.Error("Unable to open release asset",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to fetch download URL"))
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": asset.Name,
	}))
	w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		// headers are already out, nothing left to tell the client
		logger.Warn("Download interrupted",
			zap.Error(err),
		)
	}
}

// Routes registers the download API on r
func (s *Service) Routes(r chi.Router) {
	r.Get("/download-latest-release", s.downloadLatest)
}
