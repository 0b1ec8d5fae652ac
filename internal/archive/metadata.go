package archive

import (
	"speller/internal/errmodel"
)

const (
	metadataName    = "meta.yaml"
	defaultAcceptor = "acceptor.att"
)

// Metadata is the content of meta.yaml.
type Metadata struct {
	Locale      string            `yaml:"locale"`
	Title       map[string]string `yaml:"title,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Version     string            `yaml:"version,omitempty"`
	Producer    string            `yaml:"producer,omitempty"`
	Acceptor    string            `yaml:"acceptor,omitempty"`
	ErrModel    string            `yaml:"errmodel,omitempty"`
	Keyboard    string            `yaml:"keyboard,omitempty"`
	EditCosts   errmodel.Costs    `yaml:"edit_costs,omitempty"`
}

func (m Metadata) acceptorName() string {
	if m.Acceptor == "" {
		return defaultAcceptor
	}
	return m.Acceptor
}

func (m Metadata) clone() Metadata {
	if m.Title != nil {
		title := make(map[string]string, len(m.Title))
		for k, v := range m.Title {
			title[k] = v
		}
		m.Title = title
	}
	return m
}
