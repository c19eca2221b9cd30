package footer

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
)

// ErrMissingBrand reports a footer without a brand label.
var ErrMissingBrand = errors.New("footer: missing brand label")

// Link is an extra entry shown after the brand attribution.
type Link struct {
	Label string
	URL   string
}

// Config describes the attribution footer rendered under public pages.
type Config struct {
	ElementID  string
	Class      string
	PrefixText string
	BrandLabel string
	BrandURL   string
	Links      []Link
}

var footerTemplate = template.Must(template.New("footer").Parse(`<footer{{if .ElementID}} id="{{.ElementID}}"{{end}}{{if .Class}} class="{{.Class}}"{{end}}>
  {{- if .PrefixText}}<span>{{.PrefixText}}</span> {{end -}}
  {{- if .BrandURL}}<a href="{{.BrandURL}}" target="_blank" rel="noopener noreferrer">{{.BrandLabel}}</a>{{else}}<span>{{.BrandLabel}}</span>{{end -}}
  {{- range .Links}} &middot; <a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Label}}</a>{{end}}
</footer>`))

// Render returns the footer markup for the configuration.
func Render(config Config) (template.HTML, error) {
	if strings.TrimSpace(config.BrandLabel) == "" {
		return "", ErrMissingBrand
	}
	links := make([]Link, 0, len(config.Links))
	for _, link := range config.Links {
		if strings.TrimSpace(link.Label) == "" || strings.TrimSpace(link.URL) == "" {
			continue
		}
		links = append(links, link)
	}
	config.Links = links

	var buffer bytes.Buffer
	if err := footerTemplate.Execute(&buffer, config); err != nil {
		return "", err
	}
	return template.HTML(buffer.String()), nil
}
