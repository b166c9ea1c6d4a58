package util

import (
	"sort"
	"strings"
)

// StringSet is a map[string]bool with set operations added. The zero value is
// not ready for use; create one with NewStringSet or StringSetOf.
type StringSet map[string]bool

func NewStringSet(of ...map[string]bool) StringSet {
	s := StringSet{}
	for _, m := range of {
		for k := range m {
			s.Add(k)
		}
	}
	return s
}

// StringSetOf returns a StringSet holding every element of sl.
func StringSetOf(sl []string) StringSet {
	s := StringSet{}
	for i := range sl {
		s.Add(sl[i])
	}
	return s
}

func (s StringSet) Copy() StringSet {
	newS := NewStringSet()
	for k := range s {
		newS[k] = true
	}
	return newS
}

func (s StringSet) Has(value string) bool {
	_, has := s[value]
	return has
}

func (s StringSet) Add(value string) {
	s[value] = true
}

func (s StringSet) Remove(value string) {
	delete(s, value)
}

func (s StringSet) Len() int {
	return len(s)
}

func (s StringSet) Empty() bool {
	return s.Len() == 0
}

// Merge adds every element of o to s and returns whether s grew as a result.
// Fixpoint computations use the return value as their termination test.
func (s StringSet) Merge(o StringSet) bool {
	before := len(s)
	for k := range o {
		s[k] = true
	}
	return len(s) != before
}

// Difference returns a new StringSet with the elements of s that are not in o.
func (s StringSet) Difference(o StringSet) StringSet {
	newSet := NewStringSet()
	for k := range s {
		if !o.Has(k) {
			newSet.Add(k)
		}
	}
	return newSet
}

// Equal returns whether o is a StringSet (or a non-nil pointer to one) with the
// same elements as s.
func (s StringSet) Equal(o any) bool {
	other, ok := o.(StringSet)
	if !ok {
		otherPtr, ok := o.(*StringSet)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if s.Len() != other.Len() {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Sorted returns the elements of s in alphabetical order.
func (s StringSet) Sorted() []string {
	sl := make([]string, 0, len(s))
	for item := range s {
		sl = append(sl, item)
	}
	sort.Strings(sl)
	return sl
}

// String shows the contents of the set. Items are alphabetized so the output
// is stable between runs.
func (s StringSet) String() string {
	return "{" + strings.Join(s.Sorted(), ", ") + "}"
}
