package feature

import "slices"

// Labels is the ordered list of features behind a coefficient vector, position i labels
// coefficient i
type Labels []Feature

// Index returns the coefficient position of the feature or -1
func (l Labels) Index(f Feature) (int, bool) {
	want := f.String()
	i := slices.IndexFunc(l, func(g Feature) bool { return g.String() == want })
	return i, i >= 0
}

// Strings returns the string form of every label
func (l Labels) Strings() []string {
	out := make([]string, len(l))
	for i, f := range l {
		out[i] = f.String()
	}
	return out
}
