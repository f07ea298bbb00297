package registry

import "iter"

// Token identifies one listener registration.
type Token uint64

// Listeners is an ordered observer list keyed by subscription token.
// It is not safe for concurrent mutation.
type Listeners[F any] struct {
	next  Token
	order []Token
	fns   map[Token]F
}

func (l *Listeners[F]) Register(fn F) Token {
	if l.fns == nil {
		l.fns = make(map[Token]F)
	}
	l.next++
	tok := l.next
	l.fns[tok] = fn
	l.order = append(l.order, tok)
	return tok
}

func (l *Listeners[F]) Unregister(tok Token) bool {
	if _, ok := l.fns[tok]; !ok {
		return false
	}
	delete(l.fns, tok)
	for i, t := range l.order {
		if t == tok {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

func (l *Listeners[F]) Len() int {
	return len(l.order)
}

// All yields listeners in registration order.
func (l *Listeners[F]) All() iter.Seq[F] {
	return func(yield func(F) bool) {
		for _, tok := range l.order {
			if !yield(l.fns[tok]) {
				return
			}
		}
	}
}
