package release

import "time"

// Asset is a downloadable file attached to a release
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Release is the latest published release on the source host
type Release struct {
	TagName     string    `json:"tagName"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"publishedAt"`
	Assets      []Asset   `json:"assets"`
}

// SelectAsset picks the asset that best fits the client platform string.
// It only returns nil when assets is empty.
func SelectAsset(platform string, assets []Asset) *Asset {
	if len(assets) == 0 {
		return nil
	}
	p := DetectPlatform(platform)

	candidates := make([]int, 0, len(assets))
	for i, a := range assets {
		if p.MatchesOS(a.Name) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return &assets[0]
	}
	for _, i := range candidates {
		if p.MatchesArch(assets[i].Name) {
			return &assets[i]
		}
	}
	return &assets[candidates[0]]
}
