package strapi

// Ref identifies an entry. Strapi v5 addresses entries by DocumentID in
// URLs, while relations still accept the numeric ID.
type Ref struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
}

// ContactInfo is the consultants.contact-info component.
type ContactInfo struct {
	Email    string `json:"Email"`
	Phone    string `json:"Phone"`
	LinkedIn string `json:"LinkedIn"`
}

type Testimonial struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Text    string `json:"text"`
}

type CaseStudy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Consultant is the payload sent on create and update. Optional fields are
// omitted when empty so an update never blanks a value the row did not carry.
type Consultant struct {
	FirstName             string        `json:"firstName"`
	LastName              string        `json:"lastName"`
	Location              string        `json:"location,omitempty"`
	Company               string        `json:"company,omitempty"`
	CurrentRole           string        `json:"currentRole,omitempty"`
	FunctionalExpertise   any           `json:"functionalExpertise,omitempty"`
	GeographicalExpertise string        `json:"geographicalExpertise,omitempty"`
	CountryExpertise      string        `json:"countryExpertise,omitempty"`
	Rate                  *float64      `json:"rate,omitempty"`
	Bio                   string        `json:"bio,omitempty"`
	Education             string        `json:"education,omitempty"`
	Availability          string        `json:"availability,omitempty"`
	Certifications        []string      `json:"certifications"`
	Languages             []string      `json:"languages"`
	ContactInfo           ContactInfo   `json:"contactInfo"`
	Testimonials          []Testimonial `json:"testimonials"`
	CaseStudies           []CaseStudy   `json:"caseStudies"`
	ProfileImage          *int          `json:"profileImage,omitempty"`
}

// Lookup is the external key of a consultant. Email wins when set.
type Lookup struct {
	Email     string
	FirstName string
	LastName  string
}

type envelope struct {
	Data any `json:"data"`
}

type entryResponse struct {
	Data Ref `json:"data"`
}

type listResponse struct {
	Data []Ref `json:"data"`
}

type uploadedFile struct {
	ID int `json:"id"`
}
