package release

import (
	"errors"
	"fmt"
)

// ErrAssetNotFound is returned when no asset has the requested name.
var ErrAssetNotFound = errors.New("asset not found")

// Release is the subset of the latest-release document this tool consumes.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

// Asset returns the asset whose name matches exactly.
func (r *Release) Asset(name string) (Asset, error) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, nil
		}
	}

	return Asset{}, fmt.Errorf("%s in release %s: %w", name, r.TagName, ErrAssetNotFound)
}
