package persistence

import (
	"context"

	"github.com/qoox/smartcsv/modules/content/domain/attachment"
)

type InmemAttachmentResolver struct {
	byURL *SafeMap[string, int64]
	byID  *SafeMap[int64, string]
}

func NewInmemAttachmentResolver(assets map[int64]string) *InmemAttachmentResolver {
	r := &InmemAttachmentResolver{
		byURL: NewSafeMap[string, int64](),
		byID:  NewSafeMap[int64, string](),
	}
	for id, url := range assets {
		r.byURL.Set(url, id)
		r.byID.Set(id, url)
	}
	return r
}

func (r *InmemAttachmentResolver) ResolveURL(ctx context.Context, url string) (int64, error) {
	id, found := r.byURL.Get(url)
	if !found {
		return 0, attachment.ErrAssetNotFound
	}
	return id, nil
}

func (r *InmemAttachmentResolver) AssetURL(ctx context.Context, assetID int64) (string, error) {
	url, found := r.byID.Get(assetID)
	if !found {
		return "", attachment.ErrAssetNotFound
	}
	return url, nil
}
