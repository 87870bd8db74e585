package harvester

// SeenSet records URLs already handled in one run. Matching is exact string
// equality and nothing is persisted.
type SeenSet struct {
	urls map[string]struct{}
}

// NewSeenSet creates an empty seen-set
func NewSeenSet() *SeenSet {
	return &SeenSet{urls: make(map[string]struct{})}
}

// IsNew reports whether url has not been seen before and records it
func (s *SeenSet) IsNew(url string) bool {
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Len returns the number of distinct URLs seen
func (s *SeenSet) Len() int {
	return len(s.urls)
}
