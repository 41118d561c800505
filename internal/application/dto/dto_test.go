package dto

import (
	"testing"

	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	"github.com/stretchr/testify/require"
)

func TestSiteKey(t *testing.T) {
	cases := map[string]string{
		" Shop.Example.com ":   "shop.example.com",
		"www.acme-shop.com":    "acme-shop.com",
		"WWW.Acme-Shop.com.":   "acme-shop.com",
		"www.com":              "www.com",
		"wwwshop.example.com":  "wwwshop.example.com",
		"shop.www.example.com": "shop.www.example.com",
		"":                     "",
	}
	for in, want := range cases {
		require.Equal(t, want, SiteKey(in), in)
	}
}

func TestNewHostedSiteUsesBareDomain(t *testing.T) {
	site := NewHostedSite(&db.Store{Domain: "www.Acme-Shop.com", Subdomain: "acme"}, "/srv/sites/acme-shop.com")
	require.Equal(t, "acme-shop.com", site.Domain)
	require.Equal(t, "acme-shop.com", site.Key)
	require.Equal(t, "acme", site.Project)
}
