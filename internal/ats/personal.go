package ats

import "strings"

// conceptRule pairs the phrasings a job description uses for a
// seniority concept with the evidence phrasings a resume tends to use
// for the same thing.
type conceptRule struct {
	name   string
	jd     []string
	resume []string
}

var personalConcepts = []conceptRule{
	{
		name:   "mentoring",
		jd:     []string{"mentor", "guide other engineers", "coach", "grow the team"},
		resume: []string{"mentor", "mentored", "coached", "guided", "onboarded"},
	},
	{
		name:   "technical leadership",
		jd:     []string{"technical leadership", "tech lead", "lead the", "drive technical"},
		resume: []string{"led", "lead engineer", "technical lead", "drove", "owned"},
	},
	{
		name:   "production support",
		jd:     []string{"production support", "on-call", "on call", "operate", "reliability"},
		resume: []string{"on-call", "on call", "production", "incident", "uptime"},
	},
	{
		name:   "distributed systems",
		jd:     []string{"distributed systems", "microservices", "high availability", "scale"},
		resume: []string{"distributed", "microservices", "scaled", "high availability"},
	},
	{
		name:   "performance tuning",
		jd:     []string{"performance", "optimization", "optimisation", "latency"},
		resume: []string{"performance", "optimized", "optimised", "latency", "tuned"},
	},
}

const pointsPerConcept = 4

// scorePersonalAlignment awards points for seniority concepts the job
// description asks for and the resume actually evidences. Each
// satisfied concept is worth 4 points, capped at the category maximum.
func scorePersonalAlignment(jobDescription, resumeText string) int {
	jd := strings.ToLower(jobDescription)
	resume := strings.ToLower(resumeText)

	score := 0
	for _, concept := range personalConcepts {
		if containsAny(jd, concept.jd) && containsAny(resume, concept.resume) {
			score += pointsPerConcept
		}
	}
	if score > maxPersonal {
		score = maxPersonal
	}
	return score
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
