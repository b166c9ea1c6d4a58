package util

// Stack is a LIFO stack backed by a slice. The zero value is an empty stack
// ready for use. Of is exported so callers can inspect the full contents, with
// the top of the stack at the end.
type Stack[E any] struct {
	Of []E
}

// Push puts v on top of the stack.
func (s *Stack[E]) Push(v E) {
	s.Of = append(s.Of, v)
}

// Pop removes the top of the stack and returns it. It panics if the stack is
// empty.
func (s *Stack[E]) Pop() E {
	if len(s.Of) == 0 {
		panic("pop of empty stack")
	}
	v := s.Of[len(s.Of)-1]
	var zero E
	s.Of[len(s.Of)-1] = zero
	s.Of = s.Of[:len(s.Of)-1]
	return v
}

// PopN removes the top n elements and returns them in the order they were
// pushed. It panics if fewer than n elements are on the stack.
func (s *Stack[E]) PopN(n int) []E {
	if n > len(s.Of) {
		panic("pop past bottom of stack")
	}
	popped := make([]E, n)
	copy(popped, s.Of[len(s.Of)-n:])
	s.Of = s.Of[:len(s.Of)-n]
	return popped
}

// Peek returns the top of the stack without removing it. It panics if the
// stack is empty.
func (s Stack[E]) Peek() E {
	return s.Of[len(s.Of)-1]
}

// PeekAt returns the element n places below the top; PeekAt(0) is Peek().
func (s Stack[E]) PeekAt(n int) E {
	return s.Of[len(s.Of)-1-n]
}

func (s Stack[E]) Len() int {
	return len(s.Of)
}

func (s Stack[E]) Empty() bool {
	return len(s.Of) == 0
}
