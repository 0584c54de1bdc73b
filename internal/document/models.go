package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Collection names one ordered list of items in the site document.
type Collection string

const (
	Projects     Collection = "projects"
	Agents       Collection = "agents"
	Tools        Collection = "tools"
	Certificates Collection = "certificates"
	Articles     Collection = "articles"
	Media        Collection = "media"
)

// Collections lists every collection in document order.
var Collections = []Collection{Projects, Agents, Tools, Certificates, Articles, Media}

// ParseCollection maps a route segment to a Collection.
func ParseCollection(s string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Well-known settings keys.
const (
	SettingBackgroundColor = "backgroundColor"
	SettingBackgroundImage = "backgroundImage"
	SettingBackgroundMusic = "backgroundMusic"
	SettingParticles       = "particlesEnabled"
	SettingAdminPassword   = "adminPassword"
)

// Settings is a flat mapping of keys to string or boolean values.
type Settings map[string]any

// Item is one schema-free record of a collection. Every item carries an "id".
type Item map[string]any

// Document is the single aggregate holding all site content.
type Document struct {
	Settings     Settings `json:"settings"`
	Projects     []Item   `json:"projects"`
	Agents       []Item   `json:"agents"`
	Tools        []Item   `json:"tools"`
	Certificates []Item   `json:"certificates"`
	Articles     []Item   `json:"articles"`
	Media        []Item   `json:"media"`
}

// Default returns the document used when durable storage holds nothing usable.
func Default() *Document {
	d := &Document{
		Settings: Settings{
			SettingBackgroundColor: "#000000",
			SettingBackgroundImage: "",
			SettingBackgroundMusic: "",
			SettingParticles:       true,
		},
	}
	d.Normalize()
	return d
}

// Normalize replaces absent collections with empty ones so older files stay readable.
func (d *Document) Normalize() {
	if d.Settings == nil {
		d.Settings = Settings{}
	}
	for _, c := range Collections {
		p := d.Items(c)
		if *p == nil {
			*p = []Item{}
		}
	}
}

// Items returns a pointer to the slice backing collection c.
func (d *Document) Items(c Collection) *[]Item {
	switch c {
	case Projects:
		return &d.Projects
	case Agents:
		return &d.Agents
	case Tools:
		return &d.Tools
	case Certificates:
		return &d.Certificates
	case Articles:
		return &d.Articles
	case Media:
		return &d.Media
	}
	panic(fmt.Sprintf("document: unknown collection %q", c))
}

// Clone returns a deep copy; nested maps and slices are not shared.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Settings: Settings(cloneMap(d.Settings))}
	for _, c := range Collections {
		src := *d.Items(c)
		var dst []Item
		if src != nil {
			dst = make([]Item, len(src))
			for i, it := range src {
				dst[i] = Item(cloneMap(it))
			}
		}
		*out.Items(c) = dst
	}
	return out
}

// Redacted returns a copy safe for public responses (no admin password).
func (d *Document) Redacted() *Document {
	out := d.Clone()
	delete(out.Settings, SettingAdminPassword)
	return out
}

// Decode parses a serialized document and normalizes it.
func Decode(b []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d.Normalize()
	return &d, nil
}

// Encode serializes the document the way it is stored on disk.
func Encode(d *Document) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(b, '\n'), nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Item:
		return Item(cloneMap(t))
	case Settings:
		return Settings(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	return Item(cloneMap(it))
}

// ID returns the canonical text of the item's id, or "" when it has none.
func (it Item) ID() string {
	return IDString(it["id"])
}

// IDString renders an id value as decimal text. Numbers decoded from JSON
// arrive as float64, path parameters as strings; both compare equal here.
func IDString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
