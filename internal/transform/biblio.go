package transform

import (
	"github.com/cessda/skgif-api/internal/lang"
	"github.com/cessda/skgif-api/internal/pid"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
)

// The venue of every product.
const (
	VenueName = "Consortium of European Social Science Data Archives"
	VenueROR  = "02wg9xc72"
)

// Endpoint describes the archive behind a harvest endpoint.
type Endpoint struct {
	Name string
	ROR  string
}

// DataSources holds the lookup tables used to name hosting data sources.
type DataSources struct {
	// Endpoints maps a direct harvest base URL to its archive.
	Endpoints map[string]Endpoint
	// RORs maps an archive name to its ROR code.
	RORs map[string]string
	// DisplayNames maps an archive name to the name shown in products.
	DisplayNames map[string]string
}

// DefaultDataSources returns the built-in tables.
func DefaultDataSources() DataSources {
	return DataSources{
		Endpoints: map[string]Endpoint{},
		RORs: map[string]string{
			"Finnish Social Science Data Archive": "033003e23",
			VenueName:                             VenueROR,
		},
		DisplayNames: map[string]string{
			"Finnish Social Science Data Archive": "Tampere University. Finnish Social Science Data Archive",
		},
	}
}

func venue() skgif.Venue {
	u, _ := pid.NormalizeURL(pid.SchemeROR, VenueROR)
	return skgif.Venue{Entity: skgif.Entity{
		LocalIdentifier: u,
		Name:            VenueName,
		Identifiers:     []skgif.Identifier{{Value: VenueROR, Scheme: pid.SchemeROR}},
	}}
}

func (r *run) biblio(rec *study.Record) skgif.Biblio {
	return skgif.Biblio{In: venue(), HostingDataSource: r.hostingDataSource(rec)}
}

// hostingDataSource resolves the archive distributing a record from its harvest
// endpoint, else its distributor, else its publisher. It returns nil when none
// of them names an archive.
func (r *run) hostingDataSource(rec *study.Record) *skgif.DataSource {
	var name, ror string
	if ep, ok := r.dataSources.Endpoints[rec.DirectBaseURL.String()]; ok && ep.Name != "" {
		name, ror = ep.Name, ep.ROR
	}
	if name == "" {
		name = firstField(lang.SelectPreferred(rec.Distributors, lang.Default), acceptAll, distributorName)
	}
	if name == "" {
		name = firstField(lang.SelectPreferred(rec.Publishers, lang.Default), acceptAll, publisherName)
	}
	if name == "" {
		return nil
	}

	if ror == "" {
		ror = r.dataSources.RORs[name]
	}
	display := name
	if d, ok := r.dataSources.DisplayNames[name]; ok && d != "" {
		display = d
	}

	ds := &skgif.DataSource{Entity: skgif.Entity{Name: display}}
	if u, ok := pid.NormalizeURL(pid.SchemeROR, ror); ok {
		ds.LocalIdentifier = u
		ds.Identifiers = []skgif.Identifier{{Value: ror, Scheme: pid.SchemeROR}}
	} else {
		ds.LocalIdentifier = r.ids.Generate(skgif.CategoryDataSource, 1)
	}
	return ds
}

func acceptAll(string) bool { return true }
