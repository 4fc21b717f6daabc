package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

// Summary renders a short plain-text description of the document, suitable
// for status output and as MCP context.
func Summary(d Document) string {
	var parts []string

	hero := d.Hero()
	if hero.Name != "" {
		who := hero.Name
		if hero.Tagline != "" {
			who += ", " + hero.Tagline
		}
		if hero.Location != "" {
			who += " (" + hero.Location + ")"
		}
		parts = append(parts, who+".")
	}

	if exps := d.Experiences(); len(exps) > 0 {
		var roles []string
		for _, e := range exps {
			role := e.Title
			if e.Organization != "" {
				role += " at " + e.Organization
			}
			roles = append(roles, role)
		}
		parts = append(parts, fmt.Sprintf("Experience: %s.", strings.Join(roles, "; ")))
	}

	if projects := d.PetProjects(); len(projects) > 0 {
		titles := make([]string, 0, len(projects))
		for _, p := range projects {
			titles = append(titles, p.Title)
		}
		parts = append(parts, fmt.Sprintf("Projects: %s.", strings.Join(titles, ", ")))
	}

	if skills := d.TechnicalSkills(); len(skills) > 0 {
		parts = append(parts, fmt.Sprintf("Skills: %s.", strings.Join(skills, ", ")))
	}
	if skills := d.SoftSkills(); len(skills) > 0 {
		parts = append(parts, fmt.Sprintf("Soft skills: %s.", strings.Join(skills, ", ")))
	}

	var counts []string
	for _, s := range sections {
		if s.Kind != KindRecords || s.Key == KeyExperiences || s.Key == KeyPetProjects {
			continue
		}
		if n := len(RawList(d, s.Key)); n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", n, strings.ToLower(s.Title)))
		}
	}
	if len(counts) > 0 {
		parts = append(parts, fmt.Sprintf("Also lists %s.", strings.Join(counts, ", ")))
	}

	if hero.Summary != "" {
		parts = append(parts, hero.Summary)
	}

	if len(parts) == 0 {
		return "Portfolio: not yet configured."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
