package catalog

import (
	"context"
	"slices"
)

var _ Provider = (*StaticProvider)(nil)

// StaticProvider serves a fixed Dataset from memory. It backs local runs
// without a database.
type StaticProvider struct {
	ds   *Dataset
	byID map[string]Product
}

// NewStaticProvider creates a provider over ds.
func NewStaticProvider(ds *Dataset) *StaticProvider {
	byID := make(map[string]Product, len(ds.Products))
	for _, p := range ds.Products {
		byID[p.ID] = p
	}
	return &StaticProvider{ds: ds, byID: byID}
}

func (s *StaticProvider) Products(context.Context) ([]Product, error) {
	return slices.Clone(s.ds.Products), nil
}

func (s *StaticProvider) FeaturedProducts(_ context.Context, limit int) ([]Product, error) {
	var out []Product
	for _, p := range s.ds.Products {
		if len(out) == limit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *StaticProvider) Product(_ context.Context, id string) (Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *StaticProvider) Categories(context.Context) ([]Category, error) {
	return slices.Clone(s.ds.Categories), nil
}

func (s *StaticProvider) Collections(context.Context) ([]Collection, error) {
	return slices.Clone(s.ds.Collections), nil
}

func (s *StaticProvider) CollectionProducts(_ context.Context, slug string) ([]Product, error) {
	var out []Product
	for _, id := range s.ds.Members[slug] {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *StaticProvider) PublishedPosts(context.Context) ([]BlogPost, error) {
	var out []BlogPost
	for _, p := range s.ds.Posts {
		if p.Published {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b BlogPost) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}
