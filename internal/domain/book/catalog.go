package book

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Books []SeedBook `yaml:"books"`
}

// DefaultCatalog returns the books a fresh kiosk is seeded with.
func DefaultCatalog() []SeedBook {
	books, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return books
}

// LoadCatalog parses a YAML seed file of the form `books: [{title, author, ..., rfid_tag}]`.
func LoadCatalog(r io.Reader) ([]SeedBook, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Books))
	for i, b := range f.Books {
		tag := strings.TrimSpace(b.RFIDTag)
		if tag == "" || strings.TrimSpace(b.Title) == "" {
			return nil, fmt.Errorf("catalog entry %d: title and rfid_tag are required", i)
		}
		if b.Stock < 0 {
			return nil, fmt.Errorf("catalog entry %d: negative stock", i)
		}
		if _, dup := seen[tag]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate rfid_tag %s", i, tag)
		}
		seen[tag] = struct{}{}
		f.Books[i].RFIDTag = tag
	}

	return f.Books, nil
}
