package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PriceNotFound marks a site that was fetched but yielded no price
const PriceNotFound = "Não encontrado"

const (
	fieldName  = "nome"
	fieldSites = "sites"
)

// Product is a catalog entry. Only the name is interpreted; every other
// field is carried through unchanged. Sites is overwritten by enrichment.
type Product struct {
	Name   string                     `json:"nome"`
	Sites  []SiteResult               `json:"sites"`
	Extras map[string]json.RawMessage `json:"-"`

	// keyOrder is the input key order, recorded only when Extras is set
	keyOrder []string
}

// SiteResult is one attempted candidate page, in fetch order
type SiteResult struct {
	URL   string `json:"url"`
	Title string `json:"titulo"`
	Price string `json:"preco"`
}

// HasPrice reports whether the site carries an extracted price
func (s SiteResult) HasPrice() bool {
	return s.Price != "" && s.Price != PriceNotFound
}

// SearchResult is a single item returned by the search provider
type SearchResult struct {
	Link    string `json:"link"`
	Title   string `json:"titulo"`
	Snippet string `json:"snippet"`
}

// Catalog is the persisted unit: read once, written once
type Catalog struct {
	Products []Product `json:"produtos"`
}

// PricedCount returns how many sites carry a price
func (p *Product) PricedCount() int {
	n := 0
	for _, s := range p.Sites {
		if s.HasPrice() {
			n++
		}
	}
	return n
}

// Clone returns a copy whose Sites and Extras can be modified independently
func (p Product) Clone() Product {
	out := Product{Name: p.Name}
	if p.Sites != nil {
		out.Sites = append([]SiteResult(nil), p.Sites...)
	}
	if p.Extras != nil {
		out.Extras = make(map[string]json.RawMessage, len(p.Extras))
		for k, v := range p.Extras {
			out.Extras[k] = append(json.RawMessage(nil), v...)
		}
	}
	if p.keyOrder != nil {
		out.keyOrder = append([]string(nil), p.keyOrder...)
	}
	return out
}

// UnmarshalJSON keeps unknown fields in Extras and remembers their order
func (p *Product) UnmarshalJSON(data []byte) error {
	raw, order, err := decodeObject(data)
	if err != nil {
		return err
	}

	*p = Product{}
	if v, ok := raw[fieldName]; ok {
		if err := json.Unmarshal(v, &p.Name); err != nil {
			return fmt.Errorf("field %q: %w", fieldName, err)
		}
		delete(raw, fieldName)
	}
	if v, ok := raw[fieldSites]; ok {
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			if err := json.Unmarshal(v, &p.Sites); err != nil {
				return fmt.Errorf("field %q: %w", fieldSites, err)
			}
		}
		delete(raw, fieldSites)
	}
	if len(raw) > 0 {
		p.Extras = raw
		p.keyOrder = order
	}
	return nil
}

// decodeObject reads a JSON object into raw values plus its key order.
// A repeated key keeps its first position and its last value.
func decodeObject(data []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("product must be a JSON object")
	}

	raw := make(map[string]json.RawMessage)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, seen := raw[key]; !seen {
			order = append(order, key)
		}
		raw[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return raw, order, nil
}

// MarshalJSON merges Extras back in. Output always includes "sites".
// Keys keep their input order; "nome" leads and "sites" trails when they
// were absent, and extras added in code follow in sorted order.
func (p Product) MarshalJSON() ([]byte, error) {
	name, err := marshalNoEscape(p.Name)
	if err != nil {
		return nil, err
	}
	sites := p.Sites
	if sites == nil {
		sites = []SiteResult{}
	}
	encodedSites, err := marshalNoEscape(sites)
	if err != nil {
		return nil, err
	}

	values := make(map[string]json.RawMessage, len(p.Extras)+2)
	for k, v := range p.Extras {
		values[k] = v
	}
	values[fieldName] = name
	values[fieldSites] = encodedSites

	keys := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	add := func(k string) {
		if _, ok := values[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if !containsKey(p.keyOrder, fieldName) {
		add(fieldName)
	}
	for _, k := range p.keyOrder {
		add(k)
	}
	rest := make([]string, 0, len(p.Extras))
	for k := range p.Extras {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}
	add(fieldSites)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// marshalNoEscape leaves &, < and > intact in product names and titles
func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
