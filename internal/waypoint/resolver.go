package waypoint

// Resolve picks the active mark of one type for a viewer. The owner sees
// only the group mark: their personal marks never shadow it. Members see
// their personal mark first, then the group mark.
func Resolve(typ string, viewerID string, viewerIsOwner bool, marks []Mark) Resolution {
	var group, personal *Mark
	for i := range marks {
		m := &marks[i]
		if m.Type != typ {
			continue
		}
		switch m.Scope {
		case ScopeGroup:
			group = m
		case ScopePersonal:
			if m.UserID == viewerID {
				personal = m
			}
		}
	}

	if !viewerIsOwner && personal != nil {
		return Resolution{Type: typ, Source: SourcePersonal, IsMarked: true, Name: personal.Name, Mark: personal}
	}
	if group != nil {
		return Resolution{Type: typ, Source: SourceGroup, IsMarked: true, Name: group.Name, Mark: group}
	}
	return Resolution{Type: typ, Source: SourceUnmarked, Name: UnmarkedName}
}

// ResolveAll resolves every waypoint type for one viewer, keyed by type.
func ResolveAll(viewerID string, viewerIsOwner bool, marks []Mark) map[string]Resolution {
	out := make(map[string]Resolution, len(Types))
	for _, typ := range Types {
		out[typ] = Resolve(typ, viewerID, viewerIsOwner, marks)
	}
	return out
}
