package enrich

// FieldMap translates template field names to the names the metadata API
// uses. Fields without an entry keep their name.
type FieldMap map[string]string

// DefaultFieldMap returns the built-in template-to-API mapping.
func DefaultFieldMap() FieldMap {
	return FieldMap{"image": "image_url"}
}

// ToAPI returns the API name for a template field.
func (m FieldMap) ToAPI(field string) string {
	if api, ok := m[field]; ok {
		return api
	}
	return field
}

// FromAPI returns the template name for an API field.
func (m FieldMap) FromAPI(api string) string {
	for field, name := range m {
		if name == api {
			return field
		}
	}
	return api
}

// APINames translates fields in order.
func (m FieldMap) APINames(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = m.ToAPI(f)
	}
	return out
}
