package sitegen

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	textTemplate "text/template"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

const (
	HomeSlug     = "home"
	ManifestFile = "store.json"
	NotFoundFile = "404.html"
	defaultColor = "#1f2937"
)

//go:embed templates
var templatesFS embed.FS

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)
)

// Manifest is written next to the pages; the router reads the store name from it.
type Manifest struct {
	Name      string   `json:"name"`
	Domain    string   `json:"domain"`
	Subdomain string   `json:"subdomain"`
	Country   string   `json:"country"`
	Language  string   `json:"language"`
	Currency  string   `json:"currency"`
	Pages     []string `json:"pages"`
}

type Generator struct {
	root     string
	page     *template.Template
	notFound *template.Template
	css      *textTemplate.Template
}

var _ interfaces.SiteFiles = (*Generator)(nil)

func NewGenerator(root string) (*Generator, error) {
	base, err := template.ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("can't parse layout, %v", err)
	}
	page, err := template.Must(base.Clone()).ParseFS(templatesFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("can't parse page template, %v", err)
	}
	notFound, err := template.Must(base.Clone()).ParseFS(templatesFS, "templates/notfound.html")
	if err != nil {
		return nil, fmt.Errorf("can't parse 404 template, %v", err)
	}
	css, err := textTemplate.ParseFS(templatesFS, "templates/site.css")
	if err != nil {
		return nil, fmt.Errorf("can't parse stylesheet, %v", err)
	}
	return &Generator{root: root, page: page, notFound: notFound, css: css}, nil
}

func (g *Generator) Root() string {
	return g.root
}

func (g *Generator) Dir(domain string) string {
	return filepath.Join(g.root, dto.SiteKey(domain))
}

func (g *Generator) Exists(domain string) bool {
	if validKey(dto.SiteKey(domain)) != nil {
		return false
	}
	info, err := os.Stat(g.Dir(domain))
	return err == nil && info.IsDir()
}

func (g *Generator) Remove(domain string) error {
	key := dto.SiteKey(domain)
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.RemoveAll(g.Dir(domain)); err != nil {
		return fmt.Errorf("can't remove site dir %s, %v", key, err)
	}
	return nil
}

// Generate renders the site into a temp dir next to the target and swaps it in, so the
// router never sees a half written site.
func (g *Generator) Generate(ctx context.Context, store *db.Store, pages []db.StorePage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := dto.SiteKey(store.Domain)
	if err := validKey(key); err != nil {
		return "", err
	}
	files, err := g.Render(store, pages)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(g.root, 0o755); err != nil {
		return "", fmt.Errorf("can't create sites root, %v", err)
	}
	tmp, err := os.MkdirTemp(g.root, "."+key+".tmp-")
	if err != nil {
		return "", fmt.Errorf("can't create temp dir, %v", err)
	}
	defer func() {
		_ = os.RemoveAll(tmp)
	}()

	for name, content := range files {
		path := filepath.Join(tmp, filepath.FromSlash(name))
		if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("error creating directories for %s: %v", name, err)
		}
		if err = os.WriteFile(path, content, 0o644); err != nil {
			return "", fmt.Errorf("error writing %s: %v", name, err)
		}
	}
	if err = os.Chmod(tmp, 0o755); err != nil {
		return "", err
	}

	target := g.Dir(store.Domain)
	if err = swap(tmp, target); err != nil {
		return "", err
	}
	slog.Info("generated site", "store", store.ID, "dir", target, "files", len(files))
	return target, nil
}

func swap(tmp, target string) error {
	old := ""
	if _, err := os.Stat(target); err == nil {
		old = filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
		_ = os.RemoveAll(old)
		if err = os.Rename(target, old); err != nil {
			return fmt.Errorf("can't move previous site aside, %v", err)
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		if old != "" {
			_ = os.Rename(old, target)
		}
		return fmt.Errorf("can't move generated site into place, %v", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

// Render returns the site's files keyed by slash separated relative path.
func (g *Generator) Render(store *db.Store, pages []db.StorePage) (map[string][]byte, error) {
	cfg := store.Presentation()
	sv := storeView{
		Name:        store.Name,
		Domain:      dto.SiteKey(store.Domain),
		Language:    store.Language,
		LogoURL:     cfg.Branding.LogoURL,
		CompanyName: cfg.Legal.CompanyName,
		Email:       cfg.Legal.Email,
	}

	ordered, err := orderPages(pages)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(ordered)+3)
	for _, page := range ordered {
		view := pageView{
			Store:      sv,
			Title:      page.Title + " | " + store.Name,
			Heading:    page.Title,
			Paragraphs: paragraphs(page.Body),
			Nav:        navFor(ordered, page.Slug),
		}
		name := page.Slug + "/index.html"
		if page.Slug == HomeSlug {
			view.Title = store.Name
			view.Heading = store.Name
			view.Tagline = cfg.Branding.Tagline
			name = "index.html"
		}
		content, err := execute(g.page, view)
		if err != nil {
			return nil, fmt.Errorf("can't render page %s, %v", page.Slug, err)
		}
		files[name] = content
	}

	notFound, err := execute(g.notFound, pageView{
		Store: sv,
		Title: "Page not found | " + store.Name,
		Nav:   navFor(ordered, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("can't render 404 page, %v", err)
	}
	files[NotFoundFile] = notFound

	color := cfg.Branding.PrimaryColor
	if !colorPattern.MatchString(color) {
		color = defaultColor
	}
	var css bytes.Buffer
	if err = g.css.Execute(&css, struct{ PrimaryColor string }{color}); err != nil {
		return nil, fmt.Errorf("can't render stylesheet, %v", err)
	}
	files["assets/site.css"] = css.Bytes()

	manifest, err := json.MarshalIndent(Manifest{
		Name:      store.Name,
		Domain:    sv.Domain,
		Subdomain: store.Subdomain,
		Country:   store.Country,
		Language:  store.Language,
		Currency:  store.Currency,
		Pages:     slugs(ordered),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	files[ManifestFile] = append(manifest, '\n')

	return files, nil
}

type storeView struct {
	Name        string
	Domain      string
	Language    string
	LogoURL     string
	CompanyName string
	Email       string
}

type navLink struct {
	Href    string
	Title   string
	Current bool
}

type pageView struct {
	Store      storeView
	Title      string
	Heading    string
	Tagline    string
	Paragraphs []string
	Nav        []navLink
}

func execute(t *template.Template, view pageView) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// orderPages sorts by position and makes sure a home page exists.
func orderPages(pages []db.StorePage) ([]db.StorePage, error) {
	ordered := append([]db.StorePage(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})
	hasHome := false
	seen := make(map[string]bool, len(ordered))
	for _, page := range ordered {
		if !slugPattern.MatchString(page.Slug) {
			return nil, fmt.Errorf("invalid page slug %q", page.Slug)
		}
		if seen[page.Slug] {
			return nil, fmt.Errorf("duplicate page slug %q", page.Slug)
		}
		seen[page.Slug] = true
		if page.Slug == HomeSlug {
			hasHome = true
		}
	}
	if !hasHome {
		ordered = append([]db.StorePage{{Slug: HomeSlug, Title: "Home"}}, ordered...)
	}
	return ordered, nil
}

func navFor(pages []db.StorePage, current string) []navLink {
	links := make([]navLink, 0, len(pages))
	for _, page := range pages {
		href := "/" + page.Slug
		if page.Slug == HomeSlug {
			href = "/"
		}
		links = append(links, navLink{Href: href, Title: page.Title, Current: page.Slug == current})
	}
	return links
}

func paragraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	for _, part := range strings.Split(body, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func slugs(pages []db.StorePage) []string {
	out := make([]string, 0, len(pages))
	for _, page := range pages {
		out = append(out, page.Slug)
	}
	return out
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid site key %q", key)
	}
	return nil
}

// ReadManifest loads store.json from a site dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err = json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed manifest, %v", err)
	}
	return &m, nil
}
