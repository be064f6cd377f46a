package site

import (
	"os"
	"slices"
)

type Meta struct {
	Charset  string `yaml:"charset,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Property string `yaml:"property,omitempty"`
	Content  string `yaml:"content,omitempty"`
	// HID identifies the tag for overriding. Name, property or charset are used when empty.
	HID string `yaml:"hid,omitempty"`
}

func (m Meta) key() string {
	switch {
	case m.HID != "":
		return "hid:" + m.HID
	case m.Name != "":
		return "name:" + m.Name
	case m.Property != "":
		return "property:" + m.Property
	case m.Charset != "":
		return "charset"
	default:
		return ""
	}
}

type Head struct {
	Title string `yaml:"title"`
	Meta  []Meta `yaml:"meta"`
}

// With returns a copy of the head with the overrides applied. A tag replaces the earlier tag with the
// same key in place; tags with new keys are appended.
func (h Head) With(title string, overrides ...Meta) Head {
	out := Head{Title: h.Title, Meta: make([]Meta, 0, len(h.Meta)+len(overrides))}
	if title != "" {
		out.Title = title
	}

	index := map[string]int{}
	for _, m := range slices.Concat(h.Meta, overrides) {
		k := m.key()
		if i, ok := index[k]; ok && k != "" {
			out.Meta[i] = m
			continue
		}
		index[k] = len(out.Meta)
		out.Meta = append(out.Meta, m)
	}

	return out
}

// Expand replaces ${NAME} placeholders. Unknown names expand to an empty string.
func (h Head) Expand(vars map[string]string) Head {
	mapping := func(name string) string { return vars[name] }

	out := Head{Title: os.Expand(h.Title, mapping), Meta: slices.Clone(h.Meta)}
	for i := range out.Meta {
		out.Meta[i].Content = os.Expand(out.Meta[i].Content, mapping)
	}
	return out
}
