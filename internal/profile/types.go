package profile

// Hero is the scalar profile record shown at the top of the site.
type Hero struct {
	Name         string        `json:"name"`
	Tagline      string        `json:"tagline,omitempty"`
	Location     string        `json:"location,omitempty"`
	Email        string        `json:"email,omitempty"`
	LinkedIn     string        `json:"linkedin,omitempty"`
	GitHub       string        `json:"github,omitempty"`
	Twitter      string        `json:"twitter,omitempty"`
	YouTube      string        `json:"youtube,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	ProfilePhoto string        `json:"profilePhoto,omitempty"`
	ResumeURL    string        `json:"resumeUrl,omitempty"`
	ThesisURL    string        `json:"thesisUrl,omitempty"`
	CustomLinks  []CustomLink  `json:"customLinks,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

type CustomLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type CustomField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Experience is used by both the experiences and hackathons sections.
type Experience struct {
	Year         string   `json:"year"`
	Title        string   `json:"title"`
	Organization string   `json:"organization"`
	Points       []string `json:"points"`
}

type Project struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Points      []string `json:"points"`
}

// PetProject is a petProjects entry. Detail views address it by list position.
type PetProject struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	URL            string   `json:"url"`
	GitHub         string   `json:"github"`
	Category       string   `json:"category,omitempty"`
	Date           string   `json:"date,omitempty"`
	Problem        string   `json:"problem,omitempty"`
	Solution       string   `json:"solution,omitempty"`
	Implementation string   `json:"implementation,omitempty"`
	Results        string   `json:"results,omitempty"`
	Audience       string   `json:"audience,omitempty"`
	USP            string   `json:"usp,omitempty"`
	AdditionalInfo string   `json:"additionalInfo,omitempty"`
	Features       []string `json:"features,omitempty"`
	Technologies   []string `json:"technologies,omitempty"`
	Media          []string `json:"media,omitempty"`
}

type Certification struct {
	Name string `json:"name"`
	Year string `json:"year"`
}

type Education struct {
	Degree      string  `json:"degree"`
	Institution string  `json:"institution"`
	Period      string  `json:"period"`
	Details     *string `json:"details"`
}

type Publication struct {
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Venue   string `json:"venue"`
	URL     string `json:"url"`
}

// Talk is used by both the featuredTalks and teaching sections.
type Talk struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail"`
}

type Writing struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

type MiscLink struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type Testimonial struct {
	ClientName  string `json:"clientName"`
	ClientRole  string `json:"clientRole"`
	Company     string `json:"company"`
	Feedback    string `json:"feedback"`
	Rating      int    `json:"rating"`
	ProjectName string `json:"projectName"`
	Date        string `json:"date"`
}

type SpecialEvent struct {
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Badge       string   `json:"badge"`
	Tags        []string `json:"tags"`
}
