package registry

import "sync"

// Scope tracks the tokens minted for one build invocation so they can all be
// released when the invocation ends, newest first.
type Scope struct {
	r      *Registry
	tokens []Token
	mu     sync.Mutex
	closed bool
}

// NewScope opens a scope on r.
func (r *Registry) NewScope() *Scope {
	return &Scope{r: r}
}

// Registry returns the registry the scope registers into.
func (s *Scope) Registry() *Registry {
	return s.r
}

// Register registers state in the underlying registry and remembers the token.
func (s *Scope) Register(state any) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosedScope
	}
	token, err := s.r.Register(state)
	if err != nil {
		return 0, err
	}
	s.tokens = append(s.tokens, token)
	return token, nil
}

// Tokens returns the tokens registered so far, oldest first.
func (s *Scope) Tokens() []Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Close unregisters every token in reverse registration order.
// It is safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tokens := s.tokens
	s.tokens = nil
	s.mu.Unlock()

	for i := len(tokens) - 1; i >= 0; i-- {
		s.r.Unregister(tokens[i])
	}
}
