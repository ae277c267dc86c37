// Package scoring computes a heuristic ATS score for a parsed resume.
//
// The score is out of 100 and split across four sections. Each section
// rewards the presence of content up to a cap, so a resume cannot make up
// for an empty section by overfilling another one.
package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/muhammadolammi/atsscore/internal/resume"
)

const (
	SkillsMax         = 30.0
	ExperienceMax     = 35.0
	ProjectsMax       = 20.0
	CertificationsMax = 15.0
)

// Section names as they appear in the breakdown.
const (
	SectionSkills         = "Skills"
	SectionExperience     = "Work Experience"
	SectionProjects       = "Projects"
	SectionCertifications = "Certifications"
)

type Section struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Max    float64 `json:"max"`
}

type Score struct {
	Total    int       `json:"total"`
	Sections []Section `json:"sections"`
}

// Calculate scores a parsed resume. It is deterministic and never fails.
func Calculate(r resume.ParsedResume) Score {
	sections := []Section{
		{Name: SectionSkills, Points: skillsPoints(r.Skills), Max: SkillsMax},
		{Name: SectionExperience, Points: experiencePoints(r.WorkExperience), Max: ExperienceMax},
		{Name: SectionProjects, Points: projectsPoints(r.Projects), Max: ProjectsMax},
		{Name: SectionCertifications, Points: certificationPoints(r.Certifications), Max: CertificationsMax},
	}

	var sum float64
	for i := range sections {
		sections[i].Points = round2(sections[i].Points)
		sum += sections[i].Points
	}

	total := int(math.Round(sum))
	total = max(0, min(100, total))
	return Score{Total: total, Sections: sections}
}

// 2 points per item, at most 5 items per category.
func skillsPoints(s resume.Skills) float64 {
	return 2*capped(countFilled(s.Languages), 5) +
		2*capped(countFilled(s.Technologies), 5) +
		2*capped(countFilled(s.Core), 5)
}

func experiencePoints(entries []resume.WorkExperience) float64 {
	var (
		counted          int
		filledFields     int
		responsibilities int
		quantified       int
	)
	for _, e := range entries {
		if blank(e.Role) && blank(e.Organization) {
			continue
		}
		counted++
		for _, f := range []string{e.Role, e.Organization, e.Date} {
			if !blank(f) {
				filledFields++
			}
		}
		for _, b := range e.Responsibilities {
			if blank(b) {
				continue
			}
			responsibilities++
			if hasDigit(b) {
				quantified++
			}
		}
	}
	if counted == 0 {
		return 0
	}

	completeness := 5 * float64(filledFields) / float64(3*counted)
	return 5*capped(counted, 3) +
		capped(responsibilities, 10) +
		completeness +
		capped(quantified, 5)
}

func projectsPoints(projects []resume.Project) float64 {
	var titled, details int
	for _, p := range projects {
		if blank(p.Title) {
			continue
		}
		titled++
		details += countFilled(p.Details)
	}
	return 4*capped(titled, 3) + capped(details, 8)
}

func certificationPoints(certs []resume.Certification) float64 {
	var n int
	for _, c := range certs {
		if !c.Blank() {
			n++
		}
	}
	return 5 * capped(n, 3)
}

func countFilled(items []string) int {
	var n int
	for _, s := range items {
		if !blank(s) {
			n++
		}
	}
	return n
}

func capped(n, limit int) float64 {
	return float64(min(n, limit))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
