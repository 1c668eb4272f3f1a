package domain

// ResolvePerspective returns entry as viewerID sees it. Entries are stored
// with Type relative to their author, so any other viewer gets the flipped
// direction. The input is passed by value and never modified.
func ResolvePerspective(entry Entry, viewerID string) Entry {
	if entry.CreatedBy == viewerID {
		return entry
	}

	resolved := entry
	resolved.Type = entry.Type.Flip()
	return resolved
}

// ResolveAll applies ResolvePerspective to every entry.
func ResolveAll(entries []Entry, viewerID string) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = ResolvePerspective(e, viewerID)
	}
	return out
}

// StoredType converts a direction chosen by viewerID back to the author's
// frame for persistence. Flipping is its own inverse.
func StoredType(entry Entry, viewerID string, viewed EntryType) EntryType {
	if entry.CreatedBy == viewerID {
		return viewed
	}
	return viewed.Flip()
}
