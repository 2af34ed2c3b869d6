package extract

// frame is one entry of the parent stack.
type frame struct {
	EntityID string
	Depth    int
}

// ExtractionState is the context threaded through line processing.
type ExtractionState struct {
	// Root is the id of the most recent depth-0 wiki-linked entity, or "".
	Root string
	// Stack holds the enclosing entity-linked bullets, innermost last.
	Stack []frame
	// Reserved is set while the latest header is a reserved header.
	Reserved bool
}

// EnterHeader updates the state for a header line. Unless retainRoot is set
// the root entity and parent stack are cleared.
func (s *ExtractionState) EnterHeader(text string, retainRoot bool) {
	s.Reserved = IsReservedHeader(text)
	if !retainRoot {
		s.Root = ""
		s.Stack = s.Stack[:0]
	}
}

// parentFor pops every frame with depth >= depth and returns the nearest
// remaining enclosing entity, or "".
func (s *ExtractionState) parentFor(depth int) string {
	for len(s.Stack) > 0 && s.Stack[len(s.Stack)-1].Depth >= depth {
		s.Stack = s.Stack[:len(s.Stack)-1]
	}
	if len(s.Stack) == 0 {
		return ""
	}
	return s.Stack[len(s.Stack)-1].EntityID
}

func (s *ExtractionState) setRoot(id string) {
	s.Root = id
	s.Stack = append(s.Stack[:0], frame{EntityID: id, Depth: 0})
}

func (s *ExtractionState) push(id string, depth int) {
	s.Stack = append(s.Stack, frame{EntityID: id, Depth: depth})
}

// Owner returns the entity an observation attaches to: the root entity,
// else the date entity, else "".
func (s *ExtractionState) Owner(dateEntityID string) string {
	if s.Root != "" {
		return s.Root
	}
	return dateEntityID
}
