package email

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var templatesFS embed.FS

// Template kinds.
const (
	KindUpgradeIndividual  = "upgrade_individual"
	KindUpgradeMonthly     = "upgrade_monthly"
	KindUpgradeSubscribers = "upgrade_subscribers"
	KindAdminUpgrade       = "admin_upgrade"
)

// Template is a relay template reference.
type Template struct {
	ID      string `yaml:"id"`
	Subject string `yaml:"subject"`
}

// Registry resolves template kinds by locale.
type Registry struct {
	byLocale      map[string]map[string]Template
	defaultLocale string
}

// LoadRegistry reads the registry from path, or from the embedded
// templates file when path is empty.
func LoadRegistry(path, defaultLocale string) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = fs.ReadFile(templatesFS, "templates/templates.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read email templates: %w", err)
	}
	return newRegistryFromBytes(data, defaultLocale)
}

func newRegistryFromBytes(data []byte, defaultLocale string) (*Registry, error) {
	var byLocale map[string]map[string]Template
	if err := yaml.Unmarshal(data, &byLocale); err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	if _, ok := byLocale[defaultLocale]; !ok {
		return nil, fmt.Errorf("email templates: default locale %q missing", defaultLocale)
	}
	return &Registry{byLocale: byLocale, defaultLocale: defaultLocale}, nil
}

// Lookup returns the template for kind in locale, falling back to the
// default locale for unknown languages.
func (r *Registry) Lookup(locale, kind string) (Template, error) {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	set, ok := r.byLocale[lang]
	if !ok {
		set = r.byLocale[r.defaultLocale]
	}
	t, ok := set[kind]
	if !ok || t.ID == "" {
		return Template{}, fmt.Errorf("email template %q not defined for locale %q", kind, lang)
	}
	return t, nil
}
