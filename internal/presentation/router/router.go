// Package router serves generated store sites by the request's Host header.
package router

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/infra/sitegen"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const (
	CacheAssets   = "public, max-age=31536000, immutable"
	CacheHTML     = "public, max-age=60, must-revalidate"
	cacheNotFound = "no-cache"
	indexFile     = "index.html"
)

var defaultPassThrough = []string{"localhost", "127.0.0.1", "::1"}

type Config struct {
	Root string
	// BaseDomain is the hosting platform's own domain; only the exact host passes through.
	BaseDomain       string
	PassThroughHosts []string
	// PassThroughSuffixes match any host ending with the suffix, e.g. ".vercel.app".
	PassThroughSuffixes []string
	LegacyCaseFallback  bool
}

type Router struct {
	root     string
	hosts    map[string]struct{}
	suffixes []string
	legacy   bool
}

func New(cfg Config) *Router {
	hosts := make(map[string]struct{})
	for _, h := range append(append([]string{}, defaultPassThrough...), cfg.PassThroughHosts...) {
		if key := HostKey(h); key != "" {
			hosts[key] = struct{}{}
		}
	}
	if base := HostKey(cfg.BaseDomain); base != "" {
		hosts[base] = struct{}{}
	}
	var suffixes []string
	for _, s := range cfg.PassThroughSuffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			suffixes = append(suffixes, s)
		}
	}
	return &Router{root: cfg.Root, hosts: hosts, suffixes: suffixes, legacy: cfg.LegacyCaseFallback}
}

// Handler is fiber middleware. Requests for hosts without a site fall through to c.Next.
func (r *Router) Handler() fiber.Handler {
	return r.serve
}

func (r *Router) serve(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
		return c.Next()
	}
	key := HostKey(string(c.Request().Host()))
	if r.passThrough(key) {
		return c.Next()
	}
	dir, ok := r.siteDir(key)
	if !ok {
		return c.Next()
	}

	file, ok := Resolve(dir, c.Path())
	if !ok {
		return notFound(c, dir, key)
	}
	return sendFile(c, file)
}

// HostKey lowercases a raw Host value and strips the port and a leading "www.".
func HostKey(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return dto.SiteKey(strings.Trim(host, "[]"))
}

func (r *Router) passThrough(key string) bool {
	if key == "" || !safeKey(key) {
		return true
	}
	if _, ok := r.hosts[key]; ok {
		return true
	}
	for _, s := range r.suffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

func safeKey(key string) bool {
	return !strings.HasPrefix(key, ".") && !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}

func (r *Router) siteDir(key string) (string, bool) {
	candidates := []string{key}
	if r.legacy {
		if legacy := strings.ToUpper(key[:1]) + key[1:]; legacy != key {
			candidates = append(candidates, legacy)
		}
	}
	for _, name := range candidates {
		dir := filepath.Join(r.root, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// Resolve maps a request path to a regular file inside dir. Paths with dot or hidden
// segments never resolve.
func Resolve(dir, requestPath string) (string, bool) {
	decoded, err := url.PathUnescape(requestPath)
	if err != nil {
		return "", false
	}
	rel := strings.Trim(decoded, "/")
	if rel == "" {
		return regularFile(dir, indexFile)
	}
	for _, segment := range strings.Split(rel, "/") {
		if segment == "" || strings.HasPrefix(segment, ".") || strings.Contains(segment, `\`) {
			return "", false
		}
	}

	if strings.Contains(path.Base(rel), ".") {
		if file, ok := regularFile(dir, rel); ok {
			return file, true
		}
		// "/about.html" also reaches a page generated as about/index.html.
		if stem, found := strings.CutSuffix(rel, ".html"); found && stem != "" {
			return regularFile(dir, stem+"/"+indexFile)
		}
		return "", false
	}
	for _, candidate := range []string{rel + "/" + indexFile, rel + ".html", rel} {
		if file, ok := regularFile(dir, candidate); ok {
			return file, true
		}
	}
	return "", false
}

func regularFile(dir, rel string) (string, bool) {
	file := filepath.Join(dir, filepath.FromSlash(rel))
	inside, err := filepath.Rel(dir, file)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", false
	}
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return file, true
}

func sendFile(c *fiber.Ctx, file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("can't stat %s, %v", file, err)
	}
	modified := info.ModTime().UTC().Truncate(time.Second)
	ext := filepath.Ext(file)

	c.Set(fiber.HeaderLastModified, modified.Format(http.TimeFormat))
	c.Set(fiber.HeaderCacheControl, cacheControl(ext))
	c.Set(fiber.HeaderContentType, contentType(ext))

	if since := c.Get(fiber.HeaderIfModifiedSince); since != "" {
		if t, err := http.ParseTime(since); err == nil && !modified.After(t) {
			return c.SendStatus(fiber.StatusNotModified)
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("can't read %s, %v", file, err)
	}
	return c.Status(fiber.StatusOK).Send(data)
}

func cacheControl(ext string) string {
	if strings.EqualFold(ext, ".html") || strings.EqualFold(ext, ".htm") {
		return CacheHTML
	}
	return CacheAssets
}

func contentType(ext string) string {
	if ext == "" {
		return fiber.MIMEOctetStream
	}
	mime := utils.GetMIME(strings.ToLower(ext))
	if mime == "" {
		return fiber.MIMEOctetStream
	}
	if strings.HasPrefix(mime, "text/") || mime == "application/javascript" || mime == fiber.MIMEApplicationJSON {
		if !strings.Contains(mime, "charset") {
			mime += "; charset=utf-8"
		}
	}
	return mime
}

func notFound(c *fiber.Ctx, dir, key string) error {
	c.Set(fiber.HeaderCacheControl, cacheNotFound)
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)

	page, err := os.ReadFile(filepath.Join(dir, sitegen.NotFoundFile))
	if err == nil {
		return c.Status(fiber.StatusNotFound).Send(page)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("can't read 404 page", "site", key, "err", err)
	}

	name := key
	if manifest, err := sitegen.ReadManifest(dir); err == nil && manifest.Name != "" {
		name = manifest.Name
	}
	name = html.EscapeString(name)
	body := fmt.Sprintf("<!doctype html><html><head><meta charset=\"utf-8\"><title>Page not found | %s</title></head>"+
		"<body><h1>Page not found</h1><p>This page does not exist on %s.</p></body></html>", name, name)
	return c.Status(fiber.StatusNotFound).SendString(body)
}
