package skills

import "slices"

var searchQueries = map[string][]string{
	"labor": {
		"UAE labor law MOHRE complaint process",
		"Federal Decree-Law 33 2021 UAE employment rights",
		"UAE wage protection system WPS rules",
		"end of service gratuity calculation UAE",
		"UAE termination notice period labor law",
	},
	"tenancy": {
		"Dubai rental dispute RERA process",
		"Dubai tenancy law eviction rules",
		"RERA rent calculator Dubai increase",
		"security deposit return Dubai law",
		"Ejari registration process Dubai",
	},
	"commercial": {
		"UAE business setup mainland vs freezone",
		"Dubai trade license DED application",
		"UAE commercial companies law 2021",
		"DMCC company formation process",
		"UAE corporate tax 2023 rules",
	},
	"visa": {
		"UAE work permit process MOHRE",
		"UAE golden visa requirements 2024",
		"UAE visa cancellation grace period rules",
		"UAE residence visa dependent application",
		"overstay fine calculation UAE",
	},
}

// Queries returns the search queries used to gather knowledge for domain.
func Queries(domain string) []string {
	if q, ok := searchQueries[domain]; ok {
		return slices.Clone(q)
	}
	return []string{"UAE " + domain + " law regulations"}
}
