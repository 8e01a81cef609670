package sketchpad

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups catalog assets. Built-in values use the wire keys of the
// asset service; user-defined categories may use any other non-empty key.
type Category string

const (
	CategoryFaceShape  Category = "face-shapes"
	CategoryEyes       Category = "eyes"
	CategoryEyebrows   Category = "eyebrows"
	CategoryNose       Category = "nose"
	CategoryLips       Category = "lips"
	CategoryHair       Category = "hair"
	CategoryFacialHair Category = "facial-hair"
	CategoryEars       Category = "ears"
	CategoryNeck       Category = "neck"
	CategoryAccessory  Category = "accessories"
)

// BuiltinCategories lists the fixed categories in palette order.
var BuiltinCategories = []Category{
	CategoryFaceShape,
	CategoryEyes,
	CategoryEyebrows,
	CategoryNose,
	CategoryLips,
	CategoryHair,
	CategoryFacialHair,
	CategoryEars,
	CategoryNeck,
	CategoryAccessory,
}

// IsBuiltin reports whether c is one of the fixed categories.
func (c Category) IsBuiltin() bool {
	for _, b := range BuiltinCategories {
		if b == c {
			return true
		}
	}
	return false
}

// FeatureAsset is an immutable catalog image that can be placed on the canvas.
// Path is the image reference (URL or local path) used by the image cache.
type FeatureAsset struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Path        string   `json:"path"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrBuiltinCategory  = errors.New("built-in category cannot be removed")
	ErrCategorySelected = errors.New("selected category needs a fallback")
	ErrDuplicateKey     = errors.New("category key already exists")
)

// CategoryInfo is one entry of the category table.
type CategoryInfo struct {
	Key         Category
	DisplayName string
	Icon        string // icon reference, resolved by the UI
	Color       string // color token
	Builtin     bool
}

// CategoryTable is the ordered set of categories shown in the palette,
// including any user-defined entries. The zero value is not usable; call
// NewCategoryTable.
type CategoryTable struct {
	entries  []CategoryInfo
	selected Category
}

// NewCategoryTable returns a table holding the built-in categories with
// face-shapes selected.
func NewCategoryTable() *CategoryTable {
	t := &CategoryTable{selected: CategoryFaceShape}
	for _, c := range BuiltinCategories {
		t.entries = append(t.entries, CategoryInfo{
			Key:         c,
			DisplayName: defaultDisplayName(c),
			Icon:        string(c),
			Color:       "gray",
			Builtin:     true,
		})
	}
	return t
}

func defaultDisplayName(c Category) string {
	parts := strings.Split(string(c), "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// Entries returns a copy of the table in display order.
func (t *CategoryTable) Entries() []CategoryInfo {
	out := make([]CategoryInfo, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup returns the entry for key.
func (t *CategoryTable) Lookup(key Category) (CategoryInfo, bool) {
	if i := t.index(key); i >= 0 {
		return t.entries[i], true
	}
	return CategoryInfo{}, false
}

func (t *CategoryTable) index(key Category) int {
	for i := range t.entries {
		if t.entries[i].Key == key {
			return i
		}
	}
	return -1
}

// Add appends a user-defined category.
func (t *CategoryTable) Add(info CategoryInfo) error {
	if strings.TrimSpace(string(info.Key)) == "" {
		return fmt.Errorf("add category: %w", ErrUnknownCategory)
	}
	if t.index(info.Key) >= 0 {
		return fmt.Errorf("add category %q: %w", info.Key, ErrDuplicateKey)
	}
	info.Builtin = false
	if info.DisplayName == "" {
		info.DisplayName = defaultDisplayName(info.Key)
	}
	t.entries = append(t.entries, info)
	return nil
}

// Rename changes the display name of a category. The key is stable.
func (t *CategoryTable) Rename(key Category, displayName string) error {
	i := t.index(key)
	if i < 0 {
		return fmt.Errorf("rename category %q: %w", key, ErrUnknownCategory)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return fmt.Errorf("rename category %q: empty name", key)
	}
	t.entries[i].DisplayName = displayName
	return nil
}

// Delete removes a user-defined category. When key is the selected category,
// fallback must name another existing category, which becomes selected.
func (t *CategoryTable) Delete(key, fallback Category) error {
	i := t.index(key)
	if i < 0 {
		return fmt.Errorf("delete category %q: %w", key, ErrUnknownCategory)
	}
	if t.entries[i].Builtin {
		return fmt.Errorf("delete category %q: %w", key, ErrBuiltinCategory)
	}
	if t.selected == key {
		if fallback == "" || fallback == key || t.index(fallback) < 0 {
			return fmt.Errorf("delete category %q: %w", key, ErrCategorySelected)
		}
		t.selected = fallback
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return nil
}

// Select makes key the active palette category.
func (t *CategoryTable) Select(key Category) error {
	if t.index(key) < 0 {
		return fmt.Errorf("select category %q: %w", key, ErrUnknownCategory)
	}
	t.selected = key
	return nil
}

// Selected returns the active palette category.
func (t *CategoryTable) Selected() Category {
	return t.selected
}
