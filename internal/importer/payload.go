package importer

import (
	"context"

	"go.uber.org/zap"

	"expertimport/internal/sheet"
	"expertimport/internal/strapi"
)

// buildConsultant maps the row onto a payload and synthesizes what the row
// lacks. The returned lookup uses the email only when the row supplied it;
// a synthesized address changes between runs and would never match.
func (imp *Importer) buildConsultant(ctx context.Context, row sheet.Row, first, last string, w *warner) (strapi.Consultant, strapi.Lookup) {
	p := strapi.Consultant{
		FirstName:        first,
		LastName:         last,
		Location:         row.Get(sheet.ColLocation),
		Company:          row.Get(sheet.ColCompany),
		CurrentRole:      row.Get(sheet.ColRole),
		CountryExpertise: row.Get(sheet.ColCountryExpertise),
		Bio:              row.Get(sheet.ColBio),
		Education:        row.Get(sheet.ColEducation),
	}

	if v := ParseListField(row.Raw(sheet.ColTags)); v != nil {
		p.FunctionalExpertise = v
	}

	if geo := row.Get(sheet.ColGeographicalExpertise); geo != "" {
		if ValidateEnum(geo, GeographicalRegions) {
			p.GeographicalExpertise = geo
		} else {
			w.warn("enum value not allowed; omitting field",
				zap.String("field", "geographicalExpertise"), zap.String("value", geo), zap.Strings("allowed", GeographicalRegions))
		}
	}

	if cell := row.Get(sheet.ColRate); cell != "" {
		rate, err := ParseRate(cell)
		if err != nil {
			w.warn("cannot parse rate; skipping rate", zap.String("rate", cell))
		} else {
			p.Rate = &rate
		}
	}

	p.Availability = row.Get(sheet.ColAvailability)
	if p.Availability == "" {
		p.Availability = imp.Synth.Availability()
	}

	p.Certifications = StringList(row.Raw(sheet.ColCertifications))
	if len(p.Certifications) == 0 {
		p.Certifications = imp.Synth.Certifications()
	}
	p.Languages = StringList(row.Raw(sheet.ColLanguages))
	if len(p.Languages) == 0 {
		p.Languages = imp.Synth.Languages()
	}

	lookup := strapi.Lookup{FirstName: first, LastName: last}
	p.ContactInfo.Email = row.Get(sheet.ColEmail)
	if p.ContactInfo.Email != "" {
		lookup.Email = p.ContactInfo.Email
	} else {
		p.ContactInfo.Email = imp.Synth.Email(first, last)
	}

	p.ContactInfo.Phone = row.Get(sheet.ColPhone)
	if p.ContactInfo.Phone == "" {
		p.ContactInfo.Phone = imp.Synth.Phone()
	}

	p.ContactInfo.LinkedIn = row.Get(sheet.ColLinkedIn)
	if p.ContactInfo.LinkedIn == "" && imp.LinkedIn != nil && !imp.Options.DryRun {
		link, err := imp.LinkedIn.FindProfileURL(ctx, first, last, p.Company)
		if err != nil {
			w.warn("linkedin search failed; synthesizing link", zap.Error(err))
		}
		p.ContactInfo.LinkedIn = link
	}
	if p.ContactInfo.LinkedIn == "" {
		p.ContactInfo.LinkedIn = imp.Synth.LinkedIn(first, last)
	}

	p.Testimonials = imp.Synth.Testimonials()
	p.CaseStudies = imp.Synth.CaseStudies()
	return p, lookup
}

// longFields names the string fields over the CMS short-text limit.
func longFields(p strapi.Consultant) []string {
	fields := []struct {
		name  string
		value string
	}{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"location", p.Location},
		{"company", p.Company},
		{"currentRole", p.CurrentRole},
		{"countryExpertise", p.CountryExpertise},
		{"bio", p.Bio},
		{"education", p.Education},
		{"availability", p.Availability},
		{"contactInfo.Email", p.ContactInfo.Email},
		{"contactInfo.Phone", p.ContactInfo.Phone},
		{"contactInfo.LinkedIn", p.ContactInfo.LinkedIn},
	}

	var out []string
	for _, f := range fields {
		if len(f.value) > maxStringLen {
			out = append(out, f.name)
		}
	}
	return out
}
