package prompts

import (
	"fmt"
	"strings"
)

// Profile is the domain knowledge a specialist agent is primed with.
type Profile struct {
	Domain      string
	Laws        []string
	Authorities []string
	Focus       []string
}

var profiles = map[string]Profile{
	"labor": {
		Domain: "labor",
		Laws: []string{
			"Federal Decree-Law No. 33 of 2021 (Labour Relations)",
			"Cabinet Resolution No. 1 of 2022 (implementing regulation)",
			"Ministerial Resolution No. 43 of 2022 (Wage Protection System)",
		},
		Authorities: []string{"MOHRE", "Labour Courts", "Tawafuq Legal Aid Centers"},
		Focus: []string{
			"unpaid or delayed wages and WPS complaints",
			"end-of-service gratuity calculations",
			"termination, notice periods and arbitrary dismissal",
			"leave entitlements and working hours",
			"MOHRE complaint and mediation process",
		},
	},
	"tenancy": {
		Domain: "tenancy",
		Laws: []string{
			"Dubai Law No. 26 of 2007 (landlord and tenant relations)",
			"Dubai Law No. 33 of 2008 (amendments)",
			"Decree No. 43 of 2013 (rent increases)",
		},
		Authorities: []string{"RERA", "Rental Dispute Settlement Centre", "Dubai Land Department", "Ejari"},
		Focus: []string{
			"rent increases against the RERA index",
			"eviction notices and their validity",
			"security deposit disputes",
			"Ejari registration",
			"filing at the Rental Dispute Settlement Centre",
		},
	},
	"commercial": {
		Domain: "commercial",
		Laws: []string{
			"Federal Decree-Law No. 32 of 2021 (Commercial Companies)",
			"Federal Decree-Law No. 47 of 2022 (Corporate Tax)",
			"Cabinet Resolution No. 58 of 2020 (Ultimate Beneficial Owner)",
		},
		Authorities: []string{"Department of Economy and Tourism (DED)", "Federal Tax Authority", "free zone authorities"},
		Focus: []string{
			"mainland versus free zone setup",
			"trade licence applications and renewals",
			"corporate tax and VAT registration",
			"UBO and economic substance compliance",
			"partner and shareholder disputes",
		},
	},
	"visa": {
		Domain: "visa",
		Laws: []string{
			"Federal Decree-Law No. 29 of 2021 (Entry and Residence of Foreigners)",
			"Cabinet Resolution No. 65 of 2022 (residence categories)",
		},
		Authorities: []string{"ICP", "GDRFA", "MOHRE"},
		Focus: []string{
			"work permits and employment visas",
			"golden and green visa eligibility",
			"cancellation and grace periods",
			"overstay fines and bans",
			"dependent sponsorship",
		},
	},
}

// Known reports whether domain has a dedicated profile.
func Known(domain string) bool {
	_, ok := profiles[domain]
	return ok
}

// Domains returns the domains with dedicated profiles.
func Domains() []string {
	return []string{"labor", "tenancy", "commercial", "visa"}
}

// ProfileFor returns the profile for domain. Unknown domains get the labor
// profile relabelled for the requested domain.
func ProfileFor(domain string) Profile {
	if p, ok := profiles[domain]; ok {
		return p
	}
	p := profiles["labor"]
	p.Domain = domain
	return p
}

// Render writes the profile as the opening of a system prompt.
func (p Profile) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the BarqAdl specialist for UAE %s law.\n", p.Domain)

	if !Known(p.Domain) {
		fmt.Fprintf(&b, "No dedicated %s knowledge base exists yet. Rely on the legal knowledge provided below and on general UAE federal law, and say so when you are uncertain.\n", p.Domain)
	}

	writeList(&b, "Primary legislation", p.Laws)
	writeList(&b, "Authorities", p.Authorities)
	writeList(&b, "Common questions", p.Focus)
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
}
