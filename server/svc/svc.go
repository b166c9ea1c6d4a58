// Package svc has services for interacting with the plyfin server backend
// decoupled from the API that accesses it.
package svc

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/cache"
	"github.com/dekarrin/plyfin/server/dao"
)

// DefaultHashCost is the bcrypt cost used for passwords when a Service does
// not set one.
const DefaultHashCost = 14

// Limits bound the size of the text clients send. A zero field means no limit.
type Limits struct {
	// MaxSourceBytes is the largest grammar source CreateGrammar accepts.
	MaxSourceBytes int

	// MaxInputBytes is the largest text Parse and Lex accept.
	MaxInputBytes int
}

// Service is a service for interacting with and modifying the plyfin server
// backend. It performs the actions requested and makes calls to server
// persistence to preserve the backend state.
//
// The zero-value of Service is not ready to be used; call New or at least
// assign a valid DAO store to DB before attempting to use it.
type Service struct {

	// DB is the persistence store of the service.
	DB dao.Store

	// Cache holds compiled grammars by source and options. If nil, every
	// grammar is compiled from source the first time it is used.
	Cache cache.Cache

	// HashCost is the bcrypt cost of stored passwords. If 0, DefaultHashCost
	// is used.
	HashCost int

	// Defaults are the options a grammar is compiled with when the client
	// does not give them.
	Defaults plyfin.Options

	Limits Limits

	loaded *loadedGrammars
	decoy  *decoyHash
}

// New returns a Service that keeps compiled grammars in memory between calls.
func New(db dao.Store, c cache.Cache) Service {
	return Service{
		DB:       db,
		Cache:    c,
		Defaults: plyfin.DefaultOptions(),
		loaded:   &loadedGrammars{byID: map[uuid.UUID]*plyfin.Grammar{}},
		decoy:    &decoyHash{},
	}
}

func (svc Service) hashCost() int {
	if svc.HashCost == 0 {
		return DefaultHashCost
	}
	return svc.HashCost
}

// loadedGrammars is the set of grammars already compiled by a Service, keyed
// by record ID. Records are immutable, so an entry is only ever removed when
// its record is deleted.
type loadedGrammars struct {
	mtx  sync.RWMutex
	byID map[uuid.UUID]*plyfin.Grammar
}

func (lg *loadedGrammars) get(id uuid.UUID) (*plyfin.Grammar, bool) {
	if lg == nil {
		return nil, false
	}
	lg.mtx.RLock()
	defer lg.mtx.RUnlock()
	g, ok := lg.byID[id]
	return g, ok
}

func (lg *loadedGrammars) put(id uuid.UUID, g *plyfin.Grammar) {
	if lg == nil {
		return
	}
	lg.mtx.Lock()
	defer lg.mtx.Unlock()
	lg.byID[id] = g
}

func (lg *loadedGrammars) remove(id uuid.UUID) {
	if lg == nil {
		return
	}
	lg.mtx.Lock()
	defer lg.mtx.Unlock()
	delete(lg.byID, id)
}

func (lg *loadedGrammars) count() int {
	if lg == nil {
		return 0
	}
	lg.mtx.RLock()
	defer lg.mtx.RUnlock()
	return len(lg.byID)
}

// decoyHash is a bcrypt hash that unknown usernames are checked against, so a
// failed login takes as long whether or not the user exists.
type decoyHash struct {
	once sync.Once
	hash []byte
}

func (d *decoyHash) get(cost int) []byte {
	if d == nil {
		d = &decoyHash{}
	}
	d.once.Do(func() {
		// an error leaves hash nil, which bcrypt rejects like a mismatch
		d.hash, _ = bcrypt.GenerateFromPassword([]byte("plyfin decoy password"), cost)
	})
	return d.hash
}
