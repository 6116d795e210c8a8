package study

// Identifier is a persistent identifier of the study.
type Identifier struct {
	Identifier FlexibleString `json:"identifier"`
	Agency     FlexibleString `json:"agency"`
	Language   FlexibleString `json:"language"`
}

// Title is a study title in one language.
type Title struct {
	Title    FlexibleString `json:"study_title"`
	Language FlexibleString `json:"language"`
}

// Abstract is a study abstract in one language.
type Abstract struct {
	Abstract FlexibleString `json:"abstract"`
	Language FlexibleString `json:"language"`
}

// Classification is a subject classification, usually against a controlled vocabulary.
type Classification struct {
	Code        FlexibleString `json:"classification"` // notation in the vocabulary, when the archive supplied one
	SystemName  FlexibleString `json:"system_name"`
	URI         FlexibleString `json:"uri"`
	Description FlexibleString `json:"description"` // label
	Language    FlexibleString `json:"language"`
}

// PrincipalInvestigator is a person or organisation responsible for the study.
type PrincipalInvestigator struct {
	Name              FlexibleString `json:"principal_investigator"`
	Organization      FlexibleString `json:"organization"`
	ExternalLink      FlexibleString `json:"external_link"`       // identifier value
	ExternalLinkTitle FlexibleString `json:"external_link_title"` // identifier scheme, e.g. ORCID
	ExternalLinkRole  FlexibleString `json:"external_link_role"`  // "affiliation-pid" when it identifies the organization
	Language          FlexibleString `json:"language"`
}

// Distributor is an archive distributing the study.
type Distributor struct {
	Name         FlexibleString `json:"distributor"`
	Abbreviation FlexibleString `json:"abbreviation"`
	Language     FlexibleString `json:"language"`
}

// Publisher is a publisher of the study.
type Publisher struct {
	Name         FlexibleString `json:"publisher"`
	Abbreviation FlexibleString `json:"abbreviation"`
	Language     FlexibleString `json:"language"`
}

// Funding is a grant number or funding agency entry. Both lists share this shape.
type Funding struct {
	GrantNumber FlexibleString `json:"grant_number"`
	Agency      FlexibleString `json:"agency"`
	Language    FlexibleString `json:"language"`
}

// CollectionPeriod is a data collection date or period.
type CollectionPeriod struct {
	Period   FlexibleString `json:"collection_period"`
	Event    FlexibleString `json:"event"`
	Language FlexibleString `json:"language"`
}

// DistributionDate is the date the study was made available.
type DistributionDate struct {
	Date     FlexibleString `json:"distribution_date"`
	Language FlexibleString `json:"language"`
}

// PublicationDate is the publication date of the study.
type PublicationDate struct {
	Date     FlexibleString `json:"publication_date"`
	Language FlexibleString `json:"language"`
}

// DataAccess is a free-text data access restriction.
type DataAccess struct {
	Text     FlexibleString `json:"data_access"`
	Language FlexibleString `json:"language"`
}

func (e Identifier) Lang() string            { return e.Language.String() }
func (e Title) Lang() string                 { return e.Language.String() }
func (e Abstract) Lang() string              { return e.Language.String() }
func (e Classification) Lang() string        { return e.Language.String() }
func (e PrincipalInvestigator) Lang() string { return e.Language.String() }
func (e Distributor) Lang() string           { return e.Language.String() }
func (e Publisher) Lang() string             { return e.Language.String() }
func (e Funding) Lang() string               { return e.Language.String() }
func (e CollectionPeriod) Lang() string      { return e.Language.String() }
func (e DistributionDate) Lang() string      { return e.Language.String() }
func (e PublicationDate) Lang() string       { return e.Language.String() }
func (e DataAccess) Lang() string            { return e.Language.String() }
