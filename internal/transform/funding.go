package transform

import (
	"github.com/cessda/skgif-api/internal/lang"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
)

// funding merges grant numbers and funding agencies into grants. Entries with
// neither field are dropped, the preferred language group is kept, and grants
// are deduplicated by grant number, or by agency when there is no number.
func (r *run) funding(rec *study.Record) []skgif.Grant {
	var candidates []study.Funding
	for _, list := range [][]study.Funding{rec.GrantNumbers, rec.FundingAgencies} {
		for _, f := range list {
			if f.GrantNumber.String() == "" && f.Agency.String() == "" {
				continue
			}
			candidates = append(candidates, f)
		}
	}

	seen := make(map[string]bool)
	var grants []skgif.Grant
	for _, f := range lang.SelectPreferred(candidates, lang.Default) {
		number := f.GrantNumber.String()
		agency := f.Agency.String()

		key := "grant:" + number
		if number == "" {
			key = "agency:" + agency
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		n := len(grants) + 1
		g := skgif.Grant{
			LocalIdentifier: r.ids.Generate(skgif.CategoryGrant, n),
			GrantNumber:     number,
		}
		if agency != "" {
			g.FundingAgency = &skgif.Organisation{Entity: skgif.Entity{
				LocalIdentifier: r.ids.Generate(skgif.CategoryFunder, n),
				Name:            agency,
			}}
		}
		grants = append(grants, g)
	}
	return grants
}
