package database

import "sync"

// keyedMutex serializa escritas por chave (id de conversa ou de lead).
// Duas goroutines fazendo read-modify-write na mesma conversa sem isso
// perdem atualização silenciosamente; com chaves distintas nada bloqueia.
// A entrada some quando o último interessado solta o lock, então o mapa
// não acumula um mutex por id pelo tempo de vida do processo.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
