package services

import "strings"

// Field group identifiers, in discovery order.
const (
	GroupBasic        = "basic"
	GroupThumbnail    = "thumbnail"
	GroupTaxonomies   = "taxonomies"
	GroupCustomFields = "custom_fields"
)

const (
	FieldID            = "id"
	FieldType          = "type"
	FieldTitle         = "title"
	FieldBody          = "body"
	FieldExcerpt       = "excerpt"
	FieldStatus        = "status"
	FieldPublishedAt   = "publishedAt"
	FieldModifiedAt    = "modifiedAt"
	FieldAuthorLogin   = "authorLogin"
	FieldSlug          = "slug"
	FieldParentID      = "parentId"
	FieldSortOrder     = "sortOrder"
	FieldFeaturedImage = "featured_image"
	FieldFeaturedImgID = "featured_image_id"
)

type Field struct {
	Key   string
	Label string
}

type FieldGroup struct {
	Key    string
	Label  string
	Fields []Field
}

// basicFields is the fixed basic group, in its fixed order.
var basicFields = []Field{
	{Key: FieldID, Label: "ID"},
	{Key: FieldType, Label: "Type"},
	{Key: FieldTitle, Label: "Title"},
	{Key: FieldBody, Label: "Body"},
	{Key: FieldExcerpt, Label: "Excerpt"},
	{Key: FieldStatus, Label: "Status"},
	{Key: FieldPublishedAt, Label: "Published At"},
	{Key: FieldModifiedAt, Label: "Modified At"},
	{Key: FieldAuthorLogin, Label: "Author Login"},
	{Key: FieldSlug, Label: "Slug"},
	{Key: FieldParentID, Label: "Parent ID"},
	{Key: FieldSortOrder, Label: "Sort Order"},
}

var thumbnailFields = []Field{
	{Key: FieldFeaturedImage, Label: "Featured Image URL"},
	{Key: FieldFeaturedImgID, Label: "Featured Image ID"},
}

// reservedFieldSet covers every header the upsert engine consumes
// directly. Anything outside it is categorization or metadata.
var reservedFieldSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(basicFields)+len(thumbnailFields))
	for _, f := range basicFields {
		set[f.Key] = struct{}{}
	}
	for _, f := range thumbnailFields {
		set[f.Key] = struct{}{}
	}
	return set
}()

// termSeparator joins and splits multi-valued categorization cells.
const termSeparator = "/"

// categorization-ish keywords for the column classifier.
var classifierKeywords = []string{"category", "tag", "type", "genre", "brand", "model", "product"}

// looksLikeDimension reports whether an unrecognized column denotes a
// categorization dimension rather than metadata. The decision depends
// on the cell's own value, so it is re-evaluated for every row.
func looksLikeDimension(key, value string) bool {
	if strings.Contains(value, termSeparator) {
		return true
	}
	lower := strings.ToLower(key)
	for _, kw := range classifierKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RowMap is one CSV data row keyed by header. Key order is the
// insertion order of the non-blank headers, which keeps categorization
// and metadata writes deterministic.
type RowMap struct {
	keys   []string
	values map[string]string
}

// MapRow maps a raw CSV row onto its header. Blank headers are
// skipped, missing trailing cells default to "".
func MapRow(header []string, row []string) *RowMap {
	m := &RowMap{values: make(map[string]string, len(header))}
	for i, key := range header {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		var value string
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		if _, seen := m.values[key]; !seen {
			m.keys = append(m.keys, key)
		}
		m.values[key] = value
	}
	return m
}

func (m *RowMap) Get(key string) string {
	return m.values[key]
}

// Keys returns the row's keys in header order.
func (m *RowMap) Keys() []string {
	return m.keys
}
