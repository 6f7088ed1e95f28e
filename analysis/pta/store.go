// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pta

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/tools/container/intsets"
)

// LocID identifies a location of the store
type LocID int

// LocKind is the kind of a location
type LocKind int

const (
	// LocalLoc is a local of a function in a context
	LocalLoc LocKind = iota
	// FieldLoc is a property of a token. Container elements are the field ElemField.
	FieldLoc
	// StaticLoc is a static field of a class
	StaticLoc
	// GlobalLoc is a global variable
	GlobalLoc
	// StorageLoc is a property of the application-wide storage
	StorageLoc
)

const (
	// ElemField is the field holding the elements of containers
	ElemField = "[*]"

	boundTargetField = "$target"
	boundThisField   = "$this"
	boundRestField   = "$rest"
)

func boundArgField(i int) string { return "$arg" + strconv.Itoa(i) }

// A Location is a context-qualified place holding a points-to set. Only the fields relevant to the kind are set.
type Location struct {
	Kind    LocKind
	Context contexts.ContextID
	Local   *ir.Local
	Token   TokenID
	Class   *ir.Class
	Field   string
}

// LocalLocation returns the location of a local in a context
func LocalLocation(ctx contexts.ContextID, l *ir.Local) Location {
	return Location{Kind: LocalLoc, Context: ctx, Local: l}
}

// FieldLocation returns the location of a field of a token
func FieldLocation(t TokenID, field string) Location {
	return Location{Kind: FieldLoc, Token: t, Field: field}
}

// ElemLocation returns the location of the elements of a container token
func ElemLocation(t TokenID) Location {
	return FieldLocation(t, ElemField)
}

// StaticLocation returns the location of a static field
func StaticLocation(c *ir.Class, field string) Location {
	return Location{Kind: StaticLoc, Class: c, Field: field}
}

// GlobalLocation returns the location of a global
func GlobalLocation(name string) Location {
	return Location{Kind: GlobalLoc, Field: name}
}

// StorageLocation returns the location of a property of the application storage. AnyStorageProperty holds the
// objects stored under names the analysis cannot compute.
func StorageLocation(name string) Location {
	return Location{Kind: StorageLoc, Field: name}
}

// AnyStorageProperty is the storage property standing for every property name
const AnyStorageProperty = "*"

func (l Location) String() string {
	switch l.Kind {
	case LocalLoc:
		return fmt.Sprintf("%s.%s#%d", l.Local.Func.Name, l.Local.Name, l.Context)
	case FieldLoc:
		return fmt.Sprintf("o%d.%s", l.Token, l.Field)
	case StaticLoc:
		return l.Class.Name + "::" + l.Field
	case StorageLoc:
		return "AppStorage[" + strconv.Quote(l.Field) + "]"
	default:
		return "@" + l.Field
	}
}

// Store holds the points-to sets of all locations and the tables of allocation sites and tokens. Sets only grow.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	locs       []Location
	locIndex   map[Location]LocID
	pts        []*intsets.Sparse
	sites      []*AllocSite
	siteIndex  map[siteKey]AllocSiteID
	tokens     []*Token
	tokenIndex map[tokenKey]TokenID
}

// NewStore returns a store containing only TopToken and GlobalThisToken
func NewStore() *Store {
	s := &Store{
		locIndex:   map[Location]LocID{},
		siteIndex:  map[siteKey]AllocSiteID{},
		tokenIndex: map[tokenKey]TokenID{},
	}
	top := s.AllocSite(siteKey{kind: TopKind}, func(*AllocSite) {})
	s.Token(top, contexts.Empty)
	global := s.AllocSite(siteKey{kind: GlobalKind}, func(*AllocSite) {})
	s.Token(global, contexts.Empty)
	return s
}

// Loc returns the identifier of the location, creating it on first use
func (s *Store) Loc(l Location) LocID {
	s.mu.RLock()
	id, ok := s.locIndex[l]
	s.mu.RUnlock()
	if ok {
		return id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.locIndex[l]; ok {
		return id
	}
	id = LocID(len(s.locs))
	s.locs = append(s.locs, l)
	s.pts = append(s.pts, &intsets.Sparse{})
	s.locIndex[l] = id
	return id
}

// LookupLoc returns the identifier of the location, if it exists
func (s *Store) LookupLoc(l Location) (LocID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.locIndex[l]
	return id, ok
}

// Location returns the location with identifier id
func (s *Store) Location(id LocID) Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locs[id]
}

// AddPointsTo adds the tokens to the points-to set of loc. Returns true if the set changed.
func (s *Store) AddPointsTo(loc LocID, tokens *intsets.Sparse) bool {
	if tokens == nil || tokens.IsEmpty() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pts[loc].UnionWith(tokens)
}

// AddToken adds one token to the points-to set of loc. Returns true if the set changed.
func (s *Store) AddToken(loc LocID, t TokenID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pts[loc].Insert(t)
}

// PointsTo returns a copy of the points-to set of loc
func (s *Store) PointsTo(loc LocID) *intsets.Sparse {
	res := &intsets.Sparse{}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res.Copy(s.pts[loc])
	return res
}

// PointsToLocation returns a copy of the points-to set of l, empty if the location does not exist
func (s *Store) PointsToLocation(l Location) *intsets.Sparse {
	if id, ok := s.LookupLoc(l); ok {
		return s.PointsTo(id)
	}
	return &intsets.Sparse{}
}

// AllocSite returns the allocation site with the given key, calling init on the new site on first use
func (s *Store) AllocSite(k siteKey, init func(*AllocSite)) *AllocSite {
	s.mu.RLock()
	id, ok := s.siteIndex[k]
	s.mu.RUnlock()
	if ok {
		return s.site(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.siteIndex[k]; ok {
		return s.sites[id]
	}
	site := &AllocSite{ID: AllocSiteID(len(s.sites)), Kind: k.kind, Stmt: k.stmt, Class: k.class}
	init(site)
	s.sites = append(s.sites, site)
	s.siteIndex[k] = site.ID
	return site
}

func (s *Store) site(id AllocSiteID) *AllocSite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sites[id]
}

// Token returns the token of the allocation site in ctx, creating it on first use
func (s *Store) Token(site *AllocSite, ctx contexts.ContextID) TokenID {
	k := tokenKey{site: site.ID, ctx: ctx}
	s.mu.RLock()
	id, ok := s.tokenIndex[k]
	s.mu.RUnlock()
	if ok {
		return id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tokenIndex[k]; ok {
		return id
	}
	id = len(s.tokens)
	s.tokens = append(s.tokens, &Token{ID: id, Site: site, Context: ctx})
	s.tokenIndex[k] = id
	return id
}

// TokenInfo returns the token with identifier id
func (s *Store) TokenInfo(id TokenID) *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[id]
}

// Tokens returns the tokens of the set
func (s *Store) Tokens(set *intsets.Sparse) []*Token {
	ids := set.AppendTo(nil)
	res := make([]*Token, len(ids))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, id := range ids {
		res[i] = s.tokens[id]
	}
	return res
}

// NumLocations returns the number of locations
func (s *Store) NumLocations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locs)
}

// NumTokens returns the number of tokens, TopToken and GlobalThisToken included
func (s *Store) NumTokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// ForEachLocation calls f on every location with a non-empty points-to set, in creation order. The set passed to f
// is a copy.
func (s *Store) ForEachLocation(f func(id LocID, l Location, pts *intsets.Sparse)) {
	n := s.NumLocations()
	for i := 0; i < n; i++ {
		id := LocID(i)
		pts := s.PointsTo(id)
		if !pts.IsEmpty() {
			f(id, s.Location(id), pts)
		}
	}
}

// singleton returns a set containing one token
func singleton(t TokenID) *intsets.Sparse {
	res := &intsets.Sparse{}
	res.Insert(t)
	return res
}
