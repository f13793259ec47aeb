package domain

// RoomPatch — частичное обновление: меняются только заданные поля.
type RoomPatch struct {
	Name     *string `json:"name,omitempty"`
	Content  *string `json:"content,omitempty"`
	Language *string `json:"language,omitempty"`
	Theme    *string `json:"theme,omitempty"`
}

func (p RoomPatch) IsZero() bool {
	return p.Name == nil && p.Content == nil && p.Language == nil && p.Theme == nil
}

// Apply mutates r with the fields present in the patch. LastEdited is the
// caller's concern: the cache stamps it locally, the gateway takes the
// server-assigned value.
func (p RoomPatch) Apply(r *Room) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Language != nil {
		r.Language = NormalizeLanguage(*p.Language)
	}
	if p.Theme != nil {
		r.Theme = NormalizeTheme(*p.Theme)
	}
}

func StringPtr(s string) *string { return &s }
