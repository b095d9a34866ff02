// Package synth produces plausible placeholder values for profile fields the
// spreadsheet does not carry.
package synth

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"expertimport/internal/strapi"
)

var emailDomains = []string{"gmail.com", "outlook.com", "yahoo.com", "hotmail.com", "consulting.com", "expert.com"}

var availabilityOptions = []string{
	"Available immediately",
	"Available within 2-4 weeks",
	"Available for part-time projects",
	"Available for remote work",
	"Available on weekends",
	"Flexible availability",
	"Available with 30 days notice",
}

var certificationPool = []string{
	"PMP - Project Management Professional",
	"CPA - Certified Public Accountant",
	"MBA - Master of Business Administration",
	"Six Sigma Black Belt",
	"CISSP - Certified Information Systems Security Professional",
	"AWS Certified Solutions Architect",
	"Google Analytics Certified",
	"Salesforce Certified Administrator",
	"Scrum Master Certification",
	"ITIL Foundation Certification",
	"Microsoft Certified Professional",
	"Certified Financial Planner (CFP)",
	"Lean Six Sigma Green Belt",
	"Digital Marketing Certificate",
}

var languagePool = []string{
	"English (Native)",
	"Spanish (Fluent)",
	"French (Conversational)",
	"German (Business)",
	"Mandarin (Basic)",
	"Japanese (Conversational)",
	"Portuguese (Fluent)",
	"Italian (Basic)",
	"Arabic (Business)",
	"Dutch (Conversational)",
	"Russian (Basic)",
	"Korean (Basic)",
}

var testimonialPool = []strapi.Testimonial{
	{Name: "Sarah Johnson", Company: "TechCorp", Text: "Outstanding expertise and professionalism. Delivered results ahead of schedule and exceeded our expectations."},
	{Name: "Michael Chen", Company: "Global Solutions", Text: "Exceptional analytical skills and strategic thinking. Would definitely work with them again."},
	{Name: "Emma Rodriguez", Company: "StartupXYZ", Text: "Brought innovative solutions to complex challenges. Highly recommended for any organization."},
	{Name: "David Thompson", Company: "Enterprise Inc", Text: "Professional, reliable, and results-driven. Made a significant impact on our project outcomes."},
}

var caseStudyPool = []strapi.CaseStudy{
	{Title: "Digital Transformation Initiative", Description: "Led a comprehensive digital transformation project resulting in 40% improved operational efficiency and $2M annual cost savings."},
	{Title: "Market Expansion Strategy", Description: "Developed and executed market entry strategy for new geographical regions, resulting in 25% revenue growth."},
	{Title: "Process Optimization Project", Description: "Analyzed and redesigned core business processes, eliminating bottlenecks and improving customer satisfaction."},
}

// EmailDomains returns a copy of the domain pool synthesized emails use.
func EmailDomains() []string {
	return append([]string(nil), emailDomains...)
}

// Synthesizer is not safe for concurrent use; the import runs on one
// goroutine.
type Synthesizer struct {
	rng *rand.Rand
}

// New returns a Synthesizer drawing from rng. A nil rng gets an unseeded
// source.
func New(rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Synthesizer{rng: rng}
}

// NewSeeded returns a reproducible Synthesizer.
func NewSeeded(seed uint64) *Synthesizer {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Email builds an address from the names at a domain from the fixed pool.
func (s *Synthesizer) Email(firstName, lastName string) string {
	f, l := localPart(firstName), localPart(lastName)
	patterns := []string{
		f + "." + l,
		f + l,
		initial(f) + "." + l,
		f + "." + initial(l),
	}
	return pick(s.rng, patterns) + "@" + pick(s.rng, emailDomains)
}

func (s *Synthesizer) Phone() string {
	switch s.rng.IntN(3) {
	case 0:
		return fmt.Sprintf("+1-%d-%d-%d", s.between(200, 999), s.between(200, 999), s.between(1000, 9999))
	case 1:
		return fmt.Sprintf("+44-%d-%d-%d", s.between(20, 99), s.between(1000, 9999), s.between(1000, 9999))
	default:
		return fmt.Sprintf("(%d) %d-%d", s.between(200, 999), s.between(200, 999), s.between(1000, 9999))
	}
}

func (s *Synthesizer) LinkedIn(firstName, lastName string) string {
	f, l := localPart(firstName), localPart(lastName)
	variations := []string{
		f + "-" + l,
		f + l,
		f + "." + l,
		initial(f) + l,
	}
	return "https://linkedin.com/in/" + pick(s.rng, variations)
}

func (s *Synthesizer) Availability() string {
	return pick(s.rng, availabilityOptions)
}

// Certifications returns 1-4 distinct entries.
func (s *Synthesizer) Certifications() []string {
	return sample(s.rng, certificationPool, s.between(1, 4))
}

// Languages returns 1-3 distinct entries.
func (s *Synthesizer) Languages() []string {
	return sample(s.rng, languagePool, s.between(1, 3))
}

// Testimonials returns 1-2 distinct templates.
func (s *Synthesizer) Testimonials() []strapi.Testimonial {
	return sample(s.rng, testimonialPool, s.between(1, 2))
}

// CaseStudies returns 1-2 distinct templates.
func (s *Synthesizer) CaseStudies() []strapi.CaseStudy {
	return sample(s.rng, caseStudyPool, s.between(1, 2))
}

// BundleNumber picks a mock bundle in 1..n.
func (s *Synthesizer) BundleNumber(n int) int {
	if n <= 1 {
		return 1
	}
	return s.between(1, n)
}

// between returns an int in [lo, hi].
func (s *Synthesizer) between(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

func pick[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.IntN(len(pool))]
}

func sample[T any](rng *rand.Rand, pool []T, n int) []T {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]T, 0, n)
	for _, i := range rng.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}

// localPart lowercases and keeps only characters valid in both an email
// local part and a URL slug.
func localPart(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(strings.TrimSpace(s)) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "expert"
	}
	return b.String()
}

func initial(s string) string {
	return s[:1]
}
