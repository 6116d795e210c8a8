// Package skgif defines the SKG-IF entity graph produced for each harvested study.
package skgif

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entity type tags as they appear in serialized SKG-IF.
const (
	EntityProduct      = "product"
	EntityPerson       = "person"
	EntityOrganisation = "organisation"
	EntityAgent        = "agent"
	EntityTopic        = "topic"
	EntityVenue        = "venue"
	EntityDataSource   = "datasource"
	EntityGrant        = "grant"
)

// ProductTypeResearchData is the only product type this catalogue emits.
const ProductTypeResearchData = "research data"

// RoleAuthor is the role of every contribution.
// Source records carry no role information, so no other role is derived.
const RoleAuthor = "author"

// Manifestation date kinds.
const (
	DatePublication = "publication"
	DateCollected   = "collected"
)

// Identifier is an external identifier of an entity.
type Identifier struct {
	Value  string `json:"value"`
	Scheme string `json:"scheme"`
}

// NormalizeScheme lower-cases a scheme name and joins its words with underscores.
func NormalizeScheme(scheme string) string {
	return strings.Join(strings.Fields(strings.ToLower(scheme)), "_")
}

// Entity holds the fields shared by every agent-shaped entity.
type Entity struct {
	LocalIdentifier string       `json:"local_identifier"`
	Name            string       `json:"name"`
	Identifiers     []Identifier `json:"identifiers,omitempty"`
}

func marshalEntity(e Entity, entityType string) ([]byte, error) {
	return json.Marshal(struct {
		Entity
		EntityType string `json:"entity_type"`
	}{e, entityType})
}

// Actor is the agent family that can contribute to a product.
// It is closed: Person, Organisation and Agent are the only implementations.
type Actor interface {
	Base() Entity
	EntityType() string
	isActor()
}

// Person is an individual contributor.
type Person struct{ Entity }

// Organisation is an institutional contributor, affiliation or funder.
type Organisation struct{ Entity }

// Agent is a contributor that could not be classified as a person or organisation.
type Agent struct{ Entity }

func (p Person) Base() Entity       { return p.Entity }
func (o Organisation) Base() Entity { return o.Entity }
func (a Agent) Base() Entity        { return a.Entity }

func (Person) EntityType() string       { return EntityPerson }
func (Organisation) EntityType() string { return EntityOrganisation }
func (Agent) EntityType() string        { return EntityAgent }

func (Person) isActor()       {}
func (Organisation) isActor() {}
func (Agent) isActor()        {}

func (p Person) MarshalJSON() ([]byte, error)       { return marshalEntity(p.Entity, EntityPerson) }
func (o Organisation) MarshalJSON() ([]byte, error) { return marshalEntity(o.Entity, EntityOrganisation) }
func (a Agent) MarshalJSON() ([]byte, error)        { return marshalEntity(a.Entity, EntityAgent) }

// Contribution links an actor to a product.
type Contribution struct {
	Role                 string         `json:"role"`
	By                   Actor          `json:"by"`
	DeclaredAffiliations []Organisation `json:"declared_affiliations,omitempty"`
}

func (c Contribution) MarshalJSON() ([]byte, error) {
	switch c.By.(type) {
	case Person, Organisation, Agent:
	default:
		return nil, fmt.Errorf("contribution: unsupported actor %T", c.By)
	}
	type plain Contribution
	return json.Marshal(plain(c))
}

// Term is one deduplicated topic concept with labels per language.
type Term struct {
	LocalIdentifier string            `json:"local_identifier"`
	Identifiers     []Identifier      `json:"identifiers,omitempty"`
	Labels          map[string]string `json:"labels"`
}

func (t Term) MarshalJSON() ([]byte, error) {
	type plain Term
	return json.Marshal(struct {
		plain
		EntityType string `json:"entity_type"`
	}{plain(t), EntityTopic})
}

// Topic wraps a Term as it appears inside a product.
type Topic struct {
	Term Term `json:"term"`
}

// Venue is where a product is published.
type Venue struct{ Entity }

func (v Venue) MarshalJSON() ([]byte, error) { return marshalEntity(v.Entity, EntityVenue) }

// DataSource is the archive distributing a product.
type DataSource struct{ Entity }

func (d DataSource) MarshalJSON() ([]byte, error) { return marshalEntity(d.Entity, EntityDataSource) }

// Biblio holds publication details of a manifestation.
type Biblio struct {
	In                Venue       `json:"in"`
	HostingDataSource *DataSource `json:"hosting_data_source,omitempty"`
}

// AccessRights describes how a manifestation may be accessed.
// Empty fields are omitted.
type AccessRights struct {
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// Manifestation is a concrete realisation of a product.
type Manifestation struct {
	Dates        map[string][]string `json:"dates,omitempty"`
	AccessRights AccessRights        `json:"access_rights"`
	Biblio       Biblio              `json:"biblio"`
}

// Grant is a funding record.
type Grant struct {
	LocalIdentifier string        `json:"local_identifier"`
	GrantNumber     string        `json:"grant_number,omitempty"`
	FundingAgency   *Organisation `json:"funding_agency,omitempty"`
}

func (g Grant) MarshalJSON() ([]byte, error) {
	type plain Grant
	return json.Marshal(struct {
		plain
		EntityType string `json:"entity_type"`
	}{plain(g), EntityGrant})
}

// Product is the SKG-IF representation of one study.
type Product struct {
	LocalIdentifier string              `json:"local_identifier"`
	ProductType     string              `json:"product_type"`
	Identifiers     []Identifier        `json:"identifiers,omitempty"`
	Titles          map[string][]string `json:"titles"`
	Abstracts       map[string][]string `json:"abstracts,omitempty"`
	Topics          []Topic             `json:"topics,omitempty"`
	Contributions   []Contribution      `json:"contributions,omitempty"`
	Manifestations  []Manifestation     `json:"manifestations"`
	Funding         []Grant             `json:"funding,omitempty"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		EntityType string `json:"entity_type"`
	}{plain(p), EntityProduct})
}
