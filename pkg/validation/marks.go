package validation

// Marks tracks which properties a renderer should highlight, with the
// message to show. The zero value is ready to use.
type Marks map[string]string

// Apply replaces the marks with the outcome of a validation pass. A valid
// result clears every mark.
func (m *Marks) Apply(result Result) {
	next := make(Marks, len(result.Errors))
	for property, msg := range result.ByProperty() {
		next[property] = msg
	}
	*m = next
}

// Set marks property with msg.
func (m *Marks) Set(property, msg string) {
	if *m == nil {
		*m = make(Marks)
	}
	(*m)[property] = msg
}

// Clear removes the mark of property.
func (m Marks) Clear(property string) {
	delete(m, property)
}

// Has reports whether property is marked.
func (m Marks) Has(property string) bool {
	_, ok := m[property]
	return ok
}

// Clone returns an independent copy; nil when empty.
func (m Marks) Clone() map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
