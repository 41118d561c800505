package awshost

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	keys    map[string]bool
	upload  []string
	deleted []string
}

func (f *fakeObjects) UploadDir(_ context.Context, prefix, _ string) ([]string, error) {
	var uploaded []string
	for _, name := range f.upload {
		key := prefix + name
		f.keys[key] = true
		uploaded = append(uploaded, key)
	}
	return uploaded, nil
}

func (f *fakeObjects) ListFiles(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for key := range f.keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (f *fakeObjects) DeleteKeys(_ context.Context, keys []string) (int, error) {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return len(keys), nil
}

func (f *fakeObjects) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, _ := f.ListFiles(ctx, prefix)
	return f.DeleteKeys(ctx, keys)
}

// fakeCDN drops aliases on Disable the way CloudFront does.
type fakeCDN struct {
	byAlias       map[string]*Distribution
	disabled      []string
	invalidations []string
}

func (f *fakeCDN) FindByAlias(_ context.Context, domain string) (*Distribution, error) {
	return f.byAlias[domain], nil
}

func (f *fakeCDN) Create(_ context.Context, _, _, domain, _ string) (*Distribution, error) {
	d := &Distribution{ID: "E" + domain, DomainName: "d.cloudfront.net", Enabled: true}
	f.byAlias[domain] = d
	return d, nil
}

func (f *fakeCDN) Disable(_ context.Context, id string) error {
	for alias, d := range f.byAlias {
		if d.ID == id {
			delete(f.byAlias, alias)
		}
	}
	f.disabled = append(f.disabled, id)
	return nil
}

func (f *fakeCDN) Invalidate(_ context.Context, id string, paths ...string) (string, error) {
	f.invalidations = append(f.invalidations, id+" "+strings.Join(paths, ","))
	return "I1", nil
}

type fakeRecords struct{ upserts []string }

func (f *fakeRecords) UpsertAlias(_ context.Context, domain, cfDomain string) error {
	f.upserts = append(f.upserts, domain+" -> "+cfDomain)
	return nil
}

func (f *fakeRecords) DeleteAlias(context.Context, string, string) error { return nil }

type fakeCerts struct{}

func (fakeCerts) ARNFor(context.Context, string) (string, error) { return "arn:cert", nil }

func newTestPlatform(objects *fakeObjects, cdn *fakeCDN) *Platform {
	return &Platform{
		cfg:      Config{Prefix: "sites", Timeout: time.Second},
		storage:  objects,
		cdn:      cdn,
		records:  &fakeRecords{},
		certs:    fakeCerts{},
		disabled: make(map[string]string),
	}
}

func TestDeployPrunesStaleObjectsAndInvalidates(t *testing.T) {
	objects := &fakeObjects{
		keys: map[string]bool{
			"sites/shop.example.com/index.html":          true,
			"sites/shop.example.com/old-page/index.html": true,
			"sites/other.example.com/index.html":         true,
		},
		upload: []string{"index.html", "assets/site.css"},
	}
	cdn := &fakeCDN{byAlias: map[string]*Distribution{
		"shop.example.com": {ID: "E1", DomainName: "d1.cloudfront.net", Enabled: true},
	}}
	platform := newTestPlatform(objects, cdn)
	site := dto.HostedSite{Domain: "shop.example.com", Key: "shop.example.com"}

	url, err := platform.Deploy(context.Background(), site)
	require.NoError(t, err)

	require.Equal(t, "https://d1.cloudfront.net", url)
	require.Equal(t, []string{"sites/shop.example.com/old-page/index.html"}, objects.deleted)
	require.True(t, objects.keys["sites/shop.example.com/assets/site.css"])
	require.True(t, objects.keys["sites/other.example.com/index.html"])
	require.Equal(t, []string{"E1 /*"}, cdn.invalidations)
}

func TestDeployWithoutDistributionFails(t *testing.T) {
	objects := &fakeObjects{keys: map[string]bool{}, upload: []string{"index.html"}}
	cdn := &fakeCDN{byAlias: map[string]*Distribution{}}
	platform := newTestPlatform(objects, cdn)

	_, err := platform.Deploy(context.Background(), dto.HostedSite{Domain: "shop.example.com", Key: "shop.example.com"})
	require.ErrorContains(t, err, "no distribution for shop.example.com")
	require.Empty(t, cdn.invalidations)
}

func TestPurgeCacheAfterRemoveDomainUsesDisabledDistribution(t *testing.T) {
	objects := &fakeObjects{keys: map[string]bool{}}
	cdn := &fakeCDN{byAlias: map[string]*Distribution{
		"shop.example.com": {ID: "E1", DomainName: "d1.cloudfront.net", Enabled: true},
	}}
	platform := newTestPlatform(objects, cdn)
	site := dto.HostedSite{Domain: "shop.example.com", Key: "shop.example.com"}
	ctx := context.Background()

	require.NoError(t, platform.RemoveDomain(ctx, site))
	require.Equal(t, []string{"E1"}, cdn.disabled)
	require.NoError(t, platform.RemoveProject(ctx, site))
	require.NoError(t, platform.PurgeCache(ctx, site))
	require.Equal(t, []string{"E1 /*"}, cdn.invalidations)

	// the remembered id is used once
	require.NoError(t, platform.PurgeCache(ctx, site))
	require.Len(t, cdn.invalidations, 1)
}

func TestEnsureDomainCreatesDistributionOnce(t *testing.T) {
	cdn := &fakeCDN{byAlias: map[string]*Distribution{}}
	platform := newTestPlatform(&fakeObjects{keys: map[string]bool{}}, cdn)
	site := dto.HostedSite{Domain: "shop.example.com", Key: "shop.example.com"}
	ctx := context.Background()

	require.NoError(t, platform.EnsureDomain(ctx, site))
	first := cdn.byAlias["shop.example.com"]
	require.NotNil(t, first)
	require.NoError(t, platform.EnsureDomain(ctx, site))
	require.Same(t, first, cdn.byAlias["shop.example.com"])
}
