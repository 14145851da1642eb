package mapping

import "strconv"

// NewStem creates a name allocator producing stem1, stem2, ... and skipping
// names already present in namespace. A nil namespace means all names are free.
func NewStem(stem string, namespace map[string]struct{}) *Stem {
	return &Stem{
		taken: namespace,
		stem:  stem,
		last:  0,
	}
}

type Stem struct {
	taken map[string]struct{}
	stem  string
	last  int
}

// Bare returns the stem itself when it is still free, and Next otherwise.
func (s *Stem) Bare() string {
	if s.taken == nil {
		s.taken = make(map[string]struct{})
	}

	if _, ok := s.taken[s.stem]; !ok {
		s.taken[s.stem] = struct{}{}
		return s.stem
	}

	return s.Next()
}

func (s *Stem) Next() string {
	if s.taken == nil {
		s.taken = make(map[string]struct{})
	}

	for {
		s.last++
		name := s.stem + strconv.Itoa(s.last)

		if _, ok := s.taken[name]; !ok {
			s.taken[name] = struct{}{}
			return name
		}
	}
}
