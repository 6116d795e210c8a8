package transform

import (
	"log/slog"
	"strings"

	"github.com/cessda/skgif-api/internal/lang"
	"github.com/cessda/skgif-api/internal/pid"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
)

// roleAffiliationPID marks an external link that identifies the contributor's
// organization rather than the contributor.
const roleAffiliationPID = "affiliation-pid"

// allowedIdentifierTypes are the external identifier types kept on contributors.
var allowedIdentifierTypes = map[string]bool{
	"arxiv": true, "bibcode": true, "crossref": true, "doi": true,
	"eissn": true, "handle": true, "isbn": true, "issn": true,
	"ivoid": true, "lissn": true, "omid": true, "openalex": true,
	"opendoar": true, "orcid": true, "pmcid": true, "pmid": true,
	"ror": true, "spase": true, "url": true, "urn": true,
	"viaf": true, "w3id": true,
}

type actorKind int

const (
	kindAgent actorKind = iota
	kindPerson
	kindOrganisation
)

// classifyContributor picks the actor variant of a principal investigator.
func classifyContributor(idType, organization string) actorKind {
	switch {
	case idType == pid.SchemeROR && organization == "":
		return kindOrganisation
	case organization != "" || idType == pid.SchemeORCID:
		return kindPerson
	default:
		return kindAgent
	}
}

// localID returns the registry URL of the first identifier that has one,
// else a generated identifier.
func (r *run) localID(ids []skgif.Identifier, category string, index int) string {
	for _, id := range ids {
		if u, ok := pid.NormalizeURL(id.Scheme, id.Value); ok {
			return u
		}
	}
	return r.ids.Generate(category, index)
}

func (r *run) contributions(pis []study.PrincipalInvestigator) []skgif.Contribution {
	selected := lang.SelectPreferred(pis, lang.Default)

	var out []skgif.Contribution
	for i, pi := range selected {
		index := i + 1
		name := pi.Name.String()
		org := pi.Organization.String()
		idType := strings.ToLower(pi.ExternalLinkTitle.String())
		role := strings.ToLower(pi.ExternalLinkRole.String())
		value := pi.ExternalLink.String()

		kind := classifyContributor(idType, org)
		forced := false
		if name == "" {
			if org == "" {
				r.skip("contribution", "principal investigator has no name", slog.Int("index", i))
				continue
			}
			name, kind, forced = org, kindOrganisation, true
		}

		var own, affiliation []skgif.Identifier
		if value != "" && allowedIdentifierTypes[idType] {
			id := []skgif.Identifier{{Value: value, Scheme: idType}}
			if role == roleAffiliationPID {
				affiliation = id
			} else {
				own = id
			}
		} else if value != "" && idType != "" {
			r.log.Debug("dropping contributor identifier of unknown type",
				slog.String("type", idType), slog.Int("index", i))
		}

		// An organisation built from the organization field is the affiliation itself.
		if forced && own == nil {
			own, affiliation = affiliation, nil
		}

		c := skgif.Contribution{Role: skgif.RoleAuthor}
		switch kind {
		case kindPerson:
			c.By = skgif.Person{Entity: skgif.Entity{
				LocalIdentifier: r.localID(own, skgif.CategoryPerson, index),
				Name:            name,
				Identifiers:     own,
			}}
			if org != "" {
				c.DeclaredAffiliations = []skgif.Organisation{{Entity: skgif.Entity{
					LocalIdentifier: r.localID(affiliation, skgif.CategoryOrganisation, index),
					Name:            org,
					Identifiers:     affiliation,
				}}}
			}
		case kindOrganisation:
			c.By = skgif.Organisation{Entity: skgif.Entity{
				LocalIdentifier: r.localID(own, skgif.CategoryOrganisation, index),
				Name:            name,
				Identifiers:     own,
			}}
		case kindAgent:
			c.By = skgif.Agent{Entity: skgif.Entity{
				LocalIdentifier: r.localID(own, skgif.CategoryAgent, index),
				Name:            name,
				Identifiers:     own,
			}}
		}
		out = append(out, c)
	}
	return out
}
