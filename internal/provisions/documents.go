package provisions

import "wmoned/internal/registry"

// FormatDocuments returns nil for an empty list so "no documents" and "not
// looked up" both serialize as null. Documents whose id cannot be obfuscated
// are left out.
func FormatDocuments(docs []registry.Document, rules Rules, enc Encoder) []Document {
	if len(docs) == 0 || enc == nil {
		return nil
	}
	out := make([]Document, 0, len(docs))
	for i := range docs {
		id, err := enc.Encrypt(docs[i].ID)
		if err != nil {
			continue
		}
		out = append(out, Document{
			ID:            id,
			Title:         copyString(docs[i].Title),
			URL:           rules.DocumentURLPrefix + id,
			DatePublished: copyDate(docs[i].FinalizedAt),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
