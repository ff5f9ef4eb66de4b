package symbol

import "sync"

// Interner hands out one Symbol per distinct key and remembers the key, so the
// same file or declaration keeps its handle across recomputation passes.
type Interner struct {
	mu    sync.RWMutex
	byKey map[string]Symbol
	keyOf map[Symbol]string
}

func NewInterner() *Interner {
	return &Interner{
		byKey: make(map[string]Symbol),
		keyOf: make(map[Symbol]string),
	}
}

func (i *Interner) Intern(key string) Symbol {
	i.mu.RLock()
	sym, ok := i.byKey[key]
	i.mu.RUnlock()
	if ok {
		return sym
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if sym, ok := i.byKey[key]; ok {
		return sym
	}
	sym = New()
	i.byKey[key] = sym
	i.keyOf[sym] = key
	return sym
}

func (i *Interner) Lookup(key string) (Symbol, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	sym, ok := i.byKey[key]
	return sym, ok
}

// Key returns the key a symbol was interned under.
func (i *Interner) Key(sym Symbol) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	key, ok := i.keyOf[sym]
	return key, ok
}

func (i *Interner) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byKey)
}
