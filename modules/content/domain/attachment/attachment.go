// Package attachment abstracts the media library that backs thumbnail
// columns. Import resolves URLs to asset ids, export goes the other
// way.
package attachment

import (
	"context"
	"errors"
)

var ErrAssetNotFound = errors.New("asset not found")

type Resolver interface {
	// ResolveURL maps a media URL to the id of an existing asset.
	ResolveURL(ctx context.Context, url string) (int64, error)
	// AssetURL maps an asset id back to its public URL.
	AssetURL(ctx context.Context, assetID int64) (string, error)
}
