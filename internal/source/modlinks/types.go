package modlinks

import (
	"strings"

	"butterfly/internal/domain"
)

// modLinksXML is the root of ModLinks.xml
type modLinksXML struct {
	Manifests []manifestXML `xml:"Manifest"`
}

type linkXML struct {
	SHA256 string `xml:"SHA256,attr"`
	URL    string `xml:",chardata"`
}

type platformLinksXML struct {
	Windows *linkXML `xml:"Windows"`
	Mac     *linkXML `xml:"Mac"`
	Linux   *linkXML `xml:"Linux"`
}

type manifestXML struct {
	Name         string            `xml:"Name"`
	Description  string            `xml:"Description"`
	Version      string            `xml:"Version"`
	Link         *linkXML          `xml:"Link"`
	Links        *platformLinksXML `xml:"Links"`
	Dependencies []string          `xml:"Dependencies>Dependency"`
	Repository   string            `xml:"Repository"`
	Tags         *struct {
		Tag []string `xml:"Tag"`
	} `xml:"Tags"`
}

// apiLinksXML is the root of ApiLinks.xml
type apiLinksXML struct {
	Manifest struct {
		Version string           `xml:"Version"`
		Links   platformLinksXML `xml:"Links"`
		Files   []string         `xml:"Files>File"`
	} `xml:"Manifest"`
}

func (l *linkXML) toDomain() domain.APILink {
	if l == nil {
		return domain.APILink{}
	}
	return domain.APILink{URL: strings.TrimSpace(l.URL), SHA256: strings.TrimSpace(l.SHA256)}
}

func (p platformLinksXML) toDomain() domain.PlatformLinks {
	return domain.PlatformLinks{
		Linux:   p.Linux.toDomain(),
		Mac:     p.Mac.toDomain(),
		Windows: p.Windows.toDomain(),
	}
}

// toDomain converts a manifest, resolving per-platform links for goos
func (m manifestXML) toDomain(goos string) domain.ModManifestEntry {
	entry := domain.ModManifestEntry{
		Name:        strings.TrimSpace(m.Name),
		Description: strings.TrimSpace(m.Description),
		Version:     strings.TrimSpace(m.Version),
		Repository:  strings.TrimSpace(m.Repository),
	}

	var link domain.APILink
	switch {
	case m.Link != nil:
		link = m.Link.toDomain()
	case m.Links != nil:
		link, _ = m.Links.toDomain().ForOS(goos)
	}
	entry.Link = link.URL
	entry.SHA256 = link.SHA256

	for _, d := range m.Dependencies {
		if d = strings.TrimSpace(d); d != "" {
			entry.Dependencies = append(entry.Dependencies, d)
		}
	}
	if m.Tags != nil {
		entry.Tags = []string{}
		for _, t := range m.Tags.Tag {
			if t = strings.TrimSpace(t); t != "" {
				entry.Tags = append(entry.Tags, t)
			}
		}
	}
	return entry
}
