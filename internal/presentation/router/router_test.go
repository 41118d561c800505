package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	"github.com/Builder-Lawyers/store-builder/internal/infra/sitegen"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, root, key string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, key)
	for name, content := range files {
		file := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
		require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	}
	return dir
}

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg).Handler())
	app.All("/*", func(c *fiber.Ctx) error {
		return c.SendString("app")
	})
	return app
}

type response struct {
	status int
	body   string
	header http.Header
}

func do(t *testing.T, app *fiber.App, method, host, target string, headers ...string) response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Host = host
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: string(body), header: resp.Header}
}

func shopSite(t *testing.T) (string, Config) {
	root := t.TempDir()
	writeSite(t, root, "shop.example.com", map[string]string{
		"index.html":       "home",
		"about/index.html": "about",
		"faq.html":         "faq",
		"assets/site.css":  "body{}",
		"404.html":         "custom missing",
		"store.json":       `{"name":"Acme Goods"}`,
		".hidden/x.html":   "hidden",
	})
	return root, Config{Root: root, BaseDomain: "hosting.test", PassThroughSuffixes: []string{".vercel.app"}}
}

func TestHostKey(t *testing.T) {
	cases := map[string]string{
		"Shop.Example.com":          "shop.example.com",
		"www.shop.example.com:8080": "shop.example.com",
		"WWW.Shop.example.com.":     "shop.example.com",
		"www.acme-shop.com":         "acme-shop.com",
		"[::1]:3000":                "::1",
		"::1":                       "::1",
		"localhost:3000":            "localhost",
		"":                          "",
	}
	for in, want := range cases {
		require.Equal(t, want, HostKey(in), in)
	}
}

func TestServesIndexWithHeaders(t *testing.T) {
	_, cfg := shopSite(t)
	app := newApp(cfg)

	resp := do(t, app, fiber.MethodGet, "www.Shop.example.com:8080", "/")
	require.Equal(t, fiber.StatusOK, resp.status)
	require.Equal(t, "home", resp.body)
	require.Equal(t, "text/html; charset=utf-8", resp.header.Get("Content-Type"))
	require.Equal(t, CacheHTML, resp.header.Get("Cache-Control"))
	require.NotEmpty(t, resp.header.Get("Last-Modified"))
}

func TestGeneratedWWWSiteServesBothHosts(t *testing.T) {
	gen, err := sitegen.NewGenerator(t.TempDir())
	require.NoError(t, err)
	store := &db.Store{ID: 1, Name: "Acme Shop", Domain: "www.acme-shop.com", Subdomain: "acme-shop", Country: "US", Language: "en", Currency: "USD"}
	_, err = gen.Generate(context.Background(), store, []db.StorePage{{Slug: "home", Title: "Home", Body: "Welcome."}})
	require.NoError(t, err)

	app := newApp(Config{Root: gen.Root(), BaseDomain: "hosting.test"})
	for _, host := range []string{"www.acme-shop.com", "acme-shop.com"} {
		resp := do(t, app, fiber.MethodGet, host, "/")
		require.Equal(t, fiber.StatusOK, resp.status, host)
		require.Contains(t, resp.body, "Acme Shop", host)
	}
}

func TestPageVariantsResolveIdentically(t *testing.T) {
	_, cfg := shopSite(t)
	app := newApp(cfg)

	for _, target := range []string{"/about", "/about/", "/about.html", "/about/index.html"} {
		resp := do(t, app, fiber.MethodGet, "shop.example.com", target)
		require.Equal(t, fiber.StatusOK, resp.status, target)
		require.Equal(t, "about", resp.body, target)
	}
	resp := do(t, app, fiber.MethodGet, "shop.example.com", "/faq")
	require.Equal(t, "faq", resp.body)

	for _, target := range []string{"/nope", "/nope/", "/nope.html"} {
		resp := do(t, app, fiber.MethodGet, "shop.example.com", target)
		require.Equal(t, fiber.StatusNotFound, resp.status, target)
		require.Equal(t, "custom missing", resp.body, target)
	}
}

func TestAssetsAreImmutable(t *testing.T) {
	_, cfg := shopSite(t)
	resp := do(t, newApp(cfg), fiber.MethodGet, "shop.example.com", "/assets/site.css")
	require.Equal(t, fiber.StatusOK, resp.status)
	require.Equal(t, "body{}", resp.body)
	require.Equal(t, "text/css; charset=utf-8", resp.header.Get("Content-Type"))
	require.Equal(t, CacheAssets, resp.header.Get("Cache-Control"))
}

func TestNotFoundNamesStore(t *testing.T) {
	root, cfg := shopSite(t)
	require.NoError(t, os.Remove(filepath.Join(root, "shop.example.com", "404.html")))

	resp := do(t, newApp(cfg), fiber.MethodGet, "www.shop.example.com", "/missing-page")
	require.Equal(t, fiber.StatusNotFound, resp.status)
	require.Contains(t, resp.body, "Acme Goods")

	require.NoError(t, os.Remove(filepath.Join(root, "shop.example.com", "store.json")))
	resp = do(t, newApp(cfg), fiber.MethodGet, "shop.example.com", "/missing-page")
	require.Equal(t, fiber.StatusNotFound, resp.status)
	require.Contains(t, resp.body, "shop.example.com")
}

func TestHiddenPathsDoNotResolve(t *testing.T) {
	_, cfg := shopSite(t)
	resp := do(t, newApp(cfg), fiber.MethodGet, "shop.example.com", "/.hidden/x.html")
	require.Equal(t, fiber.StatusNotFound, resp.status)
}

func TestResolveGuardsTraversal(t *testing.T) {
	root := t.TempDir()
	dir := writeSite(t, root, "shop.example.com", map[string]string{"index.html": "home"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o644))

	for _, p := range []string{"/../secret.txt", "/..%2fsecret.txt", "/a/../../secret.txt", "/%2e%2e/secret.txt"} {
		_, ok := Resolve(dir, p)
		require.False(t, ok, p)
	}
	file, ok := Resolve(dir, "")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "index.html"), file)

	_, ok = Resolve(dir, "/about")
	require.False(t, ok)
}

func TestDirectoriesAreNotFiles(t *testing.T) {
	root := t.TempDir()
	dir := writeSite(t, root, "shop.example.com", map[string]string{"docs/readme.txt": "x"})
	_, ok := Resolve(dir, "/docs")
	require.False(t, ok)
}

func TestPassThrough(t *testing.T) {
	root, cfg := shopSite(t)
	writeSite(t, root, "localhost", map[string]string{"index.html": "should not serve"})
	writeSite(t, root, "hosting.test", map[string]string{"index.html": "should not serve"})
	writeSite(t, root, "my-shop.vercel.app", map[string]string{"index.html": "should not serve"})
	cfg.PassThroughHosts = []string{"admin.example.com"}
	writeSite(t, root, "admin.example.com", map[string]string{"index.html": "should not serve"})
	app := newApp(cfg)

	for _, host := range []string{"localhost:3000", "127.0.0.1", "[::1]:3000", "hosting.test", "my-shop.vercel.app", "admin.example.com", "unknown.example.com"} {
		resp := do(t, app, fiber.MethodGet, host, "/")
		require.Equal(t, "app", resp.body, host)
	}

	resp := do(t, app, fiber.MethodPost, "shop.example.com", "/")
	require.Equal(t, "app", resp.body)
}

func TestHead(t *testing.T) {
	_, cfg := shopSite(t)
	resp := do(t, newApp(cfg), fiber.MethodHead, "shop.example.com", "/about")
	require.Equal(t, fiber.StatusOK, resp.status)
	require.Empty(t, resp.body)
	require.Equal(t, "text/html; charset=utf-8", resp.header.Get("Content-Type"))
}

func TestIfModifiedSince(t *testing.T) {
	root, cfg := shopSite(t)
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "shop.example.com", "index.html"), modified, modified))
	app := newApp(cfg)

	resp := do(t, app, fiber.MethodGet, "shop.example.com", "/", "If-Modified-Since", modified.Format(http.TimeFormat))
	require.Equal(t, fiber.StatusNotModified, resp.status)

	earlier := modified.Add(-time.Hour).Format(http.TimeFormat)
	resp = do(t, app, fiber.MethodGet, "shop.example.com", "/", "If-Modified-Since", earlier)
	require.Equal(t, fiber.StatusOK, resp.status)
	require.Equal(t, modified.Format(http.TimeFormat), resp.header.Get("Last-Modified"))
}

func TestLegacyCaseFallback(t *testing.T) {
	root := t.TempDir()
	writeSite(t, root, "Legacy.example.com", map[string]string{"index.html": "legacy"})

	resp := do(t, newApp(Config{Root: root, LegacyCaseFallback: true}), fiber.MethodGet, "legacy.example.com", "/")
	require.Equal(t, "legacy", resp.body)

	resp = do(t, newApp(Config{Root: root}), fiber.MethodGet, "legacy.example.com", "/")
	require.Equal(t, "app", resp.body)
}
