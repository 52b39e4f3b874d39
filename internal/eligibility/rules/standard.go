package rules

import "visamatch/internal/eligibility"

// StandardRules returns the universal allow-list rule followed by the
// visa-class rules implied by classes, in a fixed order. A class rule is
// omitted when no class needs it.
func StandardRules(classes []VisaClass) []Rule {
	var capped, partTimeOnly, restricted, sponsored, permitted []eligibility.VisaCode
	permitDocs := map[eligibility.VisaCode]string{}
	noteMargins := map[eligibility.VisaCode]int{}
	for _, c := range classes {
		if c.HourCapped {
			capped = append(capped, c.Code)
			if c.HourCapNoteMargin > 0 {
				noteMargins[c.Code] = c.HourCapNoteMargin
			}
		}
		if c.PartTimeOnly {
			partTimeOnly = append(partTimeOnly, c.Code)
		}
		if c.IndustryRestricted {
			restricted = append(restricted, c.Code)
		}
		if c.SponsorshipTrack {
			sponsored = append(sponsored, c.Code)
		}
		if c.PermitTrack {
			permitted = append(permitted, c.Code)
			if c.PermitDocument != "" {
				permitDocs[c.Code] = c.PermitDocument
			}
		}
	}

	out := []Rule{AllowedVisaCodes{}}
	if len(capped) > 0 {
		out = append(out, WeeklyHourCap{Codes: capped, NoteMargins: noteMargins})
	}
	if len(partTimeOnly) > 0 {
		out = append(out, PartTimeOnly{Codes: partTimeOnly})
	}
	if len(restricted) > 0 {
		out = append(out, IndustryRestriction{Codes: restricted})
	}
	if len(sponsored) > 0 {
		out = append(out, EmployerSponsorship{Codes: sponsored})
	}
	if len(permitted) > 0 {
		out = append(out, WorkPermit{Codes: permitted, Documents: permitDocs})
	}
	return out
}
