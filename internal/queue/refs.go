package queue

// TemplateRef identifies a remote template. Callers pass either a raw
// TemplateID or a fetched chimp.Template handle; Enqueue normalizes both
// to the raw identifier.
type TemplateRef interface {
	TemplateID() int
}

// TemplateID is a raw template identifier.
type TemplateID int

func (id TemplateID) TemplateID() int { return int(id) }

// ListRef identifies a remote subscriber list, either by raw ListID or by
// a fetched chimp.List handle.
type ListRef interface {
	ListID() string
}

// ListID is a raw list identifier.
type ListID string

func (id ListID) ListID() string { return string(id) }
