// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

// QuerySpace is the finite set of query classes of a session, in insertion
// order, with reverse indexes over the F2 queries.
type QuerySpace struct {
	queries        []Query
	position       map[Query]int
	byComponent    map[string][]Query
	byManufacturer map[string][]Query
}

// NewQuerySpace derives the query classes from a retail catalog
func NewQuerySpace(rc *RetailCatalog) *QuerySpace {
	qs := &QuerySpace{
		position:       make(map[Query]int),
		byComponent:    make(map[string][]Query),
		byManufacturer: make(map[string][]Query),
	}

	if rc.Size() == 0 {
		return qs
	}

	qs.add(Query{})
	for _, p := range rc.Products() {
		qs.add(Query{Manufacturer: p.Manufacturer})
		qs.add(Query{Component: p.Component})
		qs.add(p.Query())
	}

	// Only F2 queries populate the reverse indexes
	for _, q := range qs.queries {
		if q.Type() != F2 {
			continue
		}
		qs.byComponent[q.Component] = append(qs.byComponent[q.Component], q)
		qs.byManufacturer[q.Manufacturer] = append(qs.byManufacturer[q.Manufacturer], q)
	}

	return qs
}

func (qs *QuerySpace) add(q Query) {
	if _, exists := qs.position[q]; exists {
		return
	}
	qs.position[q] = len(qs.queries)
	qs.queries = append(qs.queries, q)
}

// Queries returns the query classes in insertion order
func (qs *QuerySpace) Queries() []Query {
	return append([]Query(nil), qs.queries...)
}

// Len returns the number of query classes
func (qs *QuerySpace) Len() int {
	if qs == nil {
		return 0
	}
	return len(qs.queries)
}

// Contains reports whether q belongs to the space
func (qs *QuerySpace) Contains(q Query) bool {
	_, ok := qs.position[q]
	return ok
}

// QueriesForComponent returns the F2 queries using component c
func (qs *QuerySpace) QueriesForComponent(c string) []Query {
	return append([]Query(nil), qs.byComponent[c]...)
}

// QueriesForManufacturer returns the F2 queries using manufacturer m
func (qs *QuerySpace) QueriesForManufacturer(m string) []Query {
	return append([]Query(nil), qs.byManufacturer[m]...)
}
