package lifecycle

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type pageTemplate struct {
	slug  string
	title string
	body  func(name string, legal db.LegalContacts) string
}

var defaultPages = []pageTemplate{
	{"home", "Home", func(name string, _ db.LegalContacts) string {
		return fmt.Sprintf("Welcome to %s.", name)
	}},
	{"about", "About", func(name string, legal db.LegalContacts) string {
		return fmt.Sprintf("%s is run by %s.", name, operator(name, legal))
	}},
	{"contact", "Contact", func(name string, legal db.LegalContacts) string {
		var lines []string
		if legal.Email != "" {
			lines = append(lines, "Email: "+legal.Email)
		}
		if legal.Phone != "" {
			lines = append(lines, "Phone: "+legal.Phone)
		}
		if legal.Address != "" {
			lines = append(lines, "Address: "+legal.Address)
		}
		if len(lines) == 0 {
			return fmt.Sprintf("Get in touch with %s.", name)
		}
		return strings.Join(lines, "\n\n")
	}},
	{"privacy-policy", "Privacy Policy", func(name string, legal db.LegalContacts) string {
		return fmt.Sprintf("%s processes personal data only to fulfil orders placed on %s.", operator(name, legal), name)
	}},
	{"terms-of-service", "Terms of Service", func(name string, legal db.LegalContacts) string {
		return fmt.Sprintf("These terms govern purchases from %s, operated by %s.", name, operator(name, legal))
	}},
	{"refund-policy", "Refund Policy", func(name string, legal db.LegalContacts) string {
		return fmt.Sprintf("Contact %s within 14 days of delivery to request a refund.", operator(name, legal))
	}},
}

func operator(name string, legal db.LegalContacts) string {
	if legal.CompanyName != "" {
		return legal.CompanyName
	}
	return name
}

// DefaultPages builds the page set materialized for a store without pages. A configured
// page set narrows it; home is always kept.
func DefaultPages(store *db.Store) []db.StorePage {
	cfg := store.Presentation()
	var pages []db.StorePage
	for _, tpl := range defaultPages {
		if len(cfg.PageSet) > 0 && tpl.slug != "home" && !slices.Contains(cfg.PageSet, tpl.slug) {
			continue
		}
		pages = append(pages, db.StorePage{
			StoreID:  store.ID,
			Slug:     tpl.slug,
			Title:    tpl.title,
			Body:     tpl.body(store.Name, cfg.Legal),
			Position: len(pages),
		})
	}
	return pages
}
