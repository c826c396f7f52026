package model

import "encoding/json"

// NumEmailSlots is the number of parallel email slots a provider record
// can carry: email, email_1, email_2, email_3.
const NumEmailSlots = 4

// EmailSlot is one email-plus-contact-metadata group on a raw record.
type EmailSlot struct {
	Email     string
	Title     string
	FirstName string
	LastName  string
}

// RawRecord is a single business lead as returned by the lead provider.
// Known attributes are typed fields; anything the provider adds beyond
// them lands in Extra so nothing is silently dropped.
type RawRecord struct {
	DisplayName            string  `json:"display_name,omitempty"`
	Types                  any     `json:"types,omitempty"`
	Type                   string  `json:"type,omitempty"`
	CountryCode            string  `json:"country_code,omitempty"`
	State                  string  `json:"state,omitempty"`
	City                   string  `json:"city,omitempty"`
	County                 string  `json:"county,omitempty"`
	Street                 string  `json:"street,omitempty"`
	PostalCode             string  `json:"postal_code,omitempty"`
	Address                string  `json:"address,omitempty"`
	Latitude               float64 `json:"latitude,omitempty"`
	Longitude              float64 `json:"longitude,omitempty"`
	Phone                  string  `json:"phone,omitempty"`
	PhoneType              string  `json:"phone_type,omitempty"`
	LinkedIn               string  `json:"linkedin,omitempty"`
	Facebook               string  `json:"facebook,omitempty"`
	Twitter                string  `json:"twitter,omitempty"`
	Instagram              string  `json:"instagram,omitempty"`
	TikTok                 string  `json:"tiktok,omitempty"`
	WhatsApp               string  `json:"whatsapp,omitempty"`
	YouTube                string  `json:"youtube,omitempty"`
	Site                   string  `json:"site,omitempty"`
	SiteGenerator          string  `json:"site_generator,omitempty"`
	Photo                  string  `json:"photo,omitempty"`
	PhotosCount            int     `json:"photos_count,omitempty"`
	Rating                 float64 `json:"rating,omitempty"`
	RatingHistory          any     `json:"rating_history,omitempty"`
	Reviews                int     `json:"reviews,omitempty"`
	ReviewsLink            string  `json:"reviews_link,omitempty"`
	Range                  string  `json:"range,omitempty"`
	BusinessStatus         string  `json:"business_status,omitempty"`
	BusinessStatusHistory  any     `json:"business_status_history,omitempty"`
	BookingAppointmentLink string  `json:"booking_appointment_link,omitempty"`
	MenuLink               string  `json:"menu_link,omitempty"`
	Verified               bool    `json:"verified,omitempty"`
	OwnerTitle             string  `json:"owner_title,omitempty"`
	LocatedIn              string  `json:"located_in,omitempty"`
	OSID                   string  `json:"os_id,omitempty"`
	GoogleID               string  `json:"google_id,omitempty"`
	PlaceID                string  `json:"place_id,omitempty"`
	CID                    string  `json:"cid,omitempty"`
	GMBLink                string  `json:"gmb_link,omitempty"`
	LocatedOSID            string  `json:"located_os_id,omitempty"`
	WorkingHours           any     `json:"working_hours,omitempty"`
	AreaService            bool    `json:"area_service,omitempty"`
	About                  any     `json:"about,omitempty"`
	CorpName               string  `json:"corp_name,omitempty"`
	CorpEmployees          int     `json:"corp_employees,omitempty"`
	CorpRevenue            float64 `json:"corp_revenue,omitempty"`
	CorpFoundedYear        int     `json:"corp_founded_year,omitempty"`
	CorpIsPublic           bool    `json:"corp_is_public,omitempty"`
	AddedAt                string  `json:"added_at,omitempty"`
	UpdatedAt              string  `json:"updated_at,omitempty"`

	// Email slots. Slot 0 uses the bare keys, slots 1-3 the numbered ones.
	Email           string `json:"email,omitempty"`
	EmailTitle      string `json:"email_title,omitempty"`
	EmailFirstName  string `json:"email_first_name,omitempty"`
	EmailLastName   string `json:"email_last_name,omitempty"`
	Email1          string `json:"email_1,omitempty"`
	Email1Title     string `json:"email_1_title,omitempty"`
	Email1FirstName string `json:"email_1_first_name,omitempty"`
	Email1LastName  string `json:"email_1_last_name,omitempty"`
	Email2          string `json:"email_2,omitempty"`
	Email2Title     string `json:"email_2_title,omitempty"`
	Email2FirstName string `json:"email_2_first_name,omitempty"`
	Email2LastName  string `json:"email_2_last_name,omitempty"`
	Email3          string `json:"email_3,omitempty"`
	Email3Title     string `json:"email_3_title,omitempty"`
	Email3FirstName string `json:"email_3_first_name,omitempty"`
	Email3LastName  string `json:"email_3_last_name,omitempty"`

	// Verification state, populated by the verifier. Never serialized
	// back to the provider shape.
	SlotValid    [NumEmailSlots]bool `json:"-"`
	IsEmailValid bool                `json:"-"`

	// Extra holds provider attributes with no typed field.
	Extra map[string]any `json:"-"`
}

// rawRecordAlias avoids UnmarshalJSON recursion.
type rawRecordAlias RawRecord

// UnmarshalJSON decodes known fields into their typed slots and collects
// every unrecognized provider attribute into Extra.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var alias rawRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	var extra map[string]any
	for k, raw := range all {
		if knownRecordKeys[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}

	*r = RawRecord(alias)
	r.Extra = extra
	return nil
}

// Slot returns the i-th email slot (0-based, order email, email_1..3).
func (r *RawRecord) Slot(i int) EmailSlot {
	switch i {
	case 0:
		return EmailSlot{r.Email, r.EmailTitle, r.EmailFirstName, r.EmailLastName}
	case 1:
		return EmailSlot{r.Email1, r.Email1Title, r.Email1FirstName, r.Email1LastName}
	case 2:
		return EmailSlot{r.Email2, r.Email2Title, r.Email2FirstName, r.Email2LastName}
	case 3:
		return EmailSlot{r.Email3, r.Email3Title, r.Email3FirstName, r.Email3LastName}
	}
	return EmailSlot{}
}

// ClearSlots zeroes all raw email slot fields and verification state.
func (r *RawRecord) ClearSlots() {
	r.Email, r.EmailTitle, r.EmailFirstName, r.EmailLastName = "", "", "", ""
	r.Email1, r.Email1Title, r.Email1FirstName, r.Email1LastName = "", "", "", ""
	r.Email2, r.Email2Title, r.Email2FirstName, r.Email2LastName = "", "", "", ""
	r.Email3, r.Email3Title, r.Email3FirstName, r.Email3LastName = "", "", "", ""
	r.SlotValid = [NumEmailSlots]bool{}
	r.IsEmailValid = false
}

// Field resolves a business attribute by its provider column name.
// Unknown names fall back to the Extra side-mapping.
func (r *RawRecord) Field(name string) any {
	switch name {
	case "display_name":
		return r.DisplayName
	case "types":
		return r.Types
	case "type":
		return r.Type
	case "country_code":
		return r.CountryCode
	case "state":
		return r.State
	case "city":
		return r.City
	case "county":
		return r.County
	case "street":
		return r.Street
	case "postal_code":
		return r.PostalCode
	case "address":
		return r.Address
	case "latitude":
		return r.Latitude
	case "longitude":
		return r.Longitude
	case "phone":
		return r.Phone
	case "phone_type":
		return r.PhoneType
	case "linkedin":
		return r.LinkedIn
	case "facebook":
		return r.Facebook
	case "twitter":
		return r.Twitter
	case "instagram":
		return r.Instagram
	case "tiktok":
		return r.TikTok
	case "whatsapp":
		return r.WhatsApp
	case "youtube":
		return r.YouTube
	case "site":
		return r.Site
	case "site_generator":
		return r.SiteGenerator
	case "photo":
		return r.Photo
	case "photos_count":
		return r.PhotosCount
	case "rating":
		return r.Rating
	case "rating_history":
		return r.RatingHistory
	case "reviews":
		return r.Reviews
	case "reviews_link":
		return r.ReviewsLink
	case "range":
		return r.Range
	case "business_status":
		return r.BusinessStatus
	case "business_status_history":
		return r.BusinessStatusHistory
	case "booking_appointment_link":
		return r.BookingAppointmentLink
	case "menu_link":
		return r.MenuLink
	case "verified":
		return r.Verified
	case "owner_title":
		return r.OwnerTitle
	case "located_in":
		return r.LocatedIn
	case "os_id":
		return r.OSID
	case "google_id":
		return r.GoogleID
	case "place_id":
		return r.PlaceID
	case "cid":
		return r.CID
	case "gmb_link":
		return r.GMBLink
	case "located_os_id":
		return r.LocatedOSID
	case "working_hours":
		return r.WorkingHours
	case "area_service":
		return r.AreaService
	case "about":
		return r.About
	case "corp_name":
		return r.CorpName
	case "corp_employees":
		return r.CorpEmployees
	case "corp_revenue":
		return r.CorpRevenue
	case "corp_founded_year":
		return r.CorpFoundedYear
	case "corp_is_public":
		return r.CorpIsPublic
	case "added_at":
		return r.AddedAt
	case "updated_at":
		return r.UpdatedAt
	}
	if r.Extra != nil {
		if v, ok := r.Extra[name]; ok {
			return v
		}
	}
	return nil
}

// knownRecordKeys lists every provider key with a typed field, including
// the email slot groups.
var knownRecordKeys = map[string]bool{
	"display_name": true, "types": true, "type": true, "country_code": true,
	"state": true, "city": true, "county": true, "street": true,
	"postal_code": true, "address": true, "latitude": true, "longitude": true,
	"phone": true, "phone_type": true, "linkedin": true, "facebook": true,
	"twitter": true, "instagram": true, "tiktok": true, "whatsapp": true,
	"youtube": true, "site": true, "site_generator": true, "photo": true,
	"photos_count": true, "rating": true, "rating_history": true,
	"reviews": true, "reviews_link": true, "range": true,
	"business_status": true, "business_status_history": true,
	"booking_appointment_link": true, "menu_link": true, "verified": true,
	"owner_title": true, "located_in": true, "os_id": true, "google_id": true,
	"place_id": true, "cid": true, "gmb_link": true, "located_os_id": true,
	"working_hours": true, "area_service": true, "about": true,
	"corp_name": true, "corp_employees": true, "corp_revenue": true,
	"corp_founded_year": true, "corp_is_public": true,
	"added_at": true, "updated_at": true,
	"email": true, "email_title": true, "email_first_name": true, "email_last_name": true,
	"email_1": true, "email_1_title": true, "email_1_first_name": true, "email_1_last_name": true,
	"email_2": true, "email_2_title": true, "email_2_first_name": true, "email_2_last_name": true,
	"email_3": true, "email_3_title": true, "email_3_first_name": true, "email_3_last_name": true,
}

// EnrichedRecord is the normalized output projection: exactly one email
// (possibly blank), the winning slot's contact metadata, the area-code
// enrichment, and the base business attributes with raw slots stripped.
type EnrichedRecord struct {
	Record         RawRecord `json:"record"`
	EnrichAreaCode string    `json:"enrich_area_code"`
	Email          string    `json:"email"`
	EmailTitle     string    `json:"email_title"`
	EmailFirstName string    `json:"email_first_name"`
	EmailLastName  string    `json:"email_last_name"`
	IsEmailValid   bool      `json:"is_email_valid"`
}

// Field resolves an output column for this record, covering both the
// derived email/enrichment columns and the base business attributes.
func (e *EnrichedRecord) Field(name string) any {
	switch name {
	case "enrich area codes":
		return e.EnrichAreaCode
	case "email":
		return e.Email
	case "email_title":
		return e.EmailTitle
	case "email_first_name":
		return e.EmailFirstName
	case "email_last_name":
		return e.EmailLastName
	case "is_email_valid":
		return e.IsEmailValid
	}
	return e.Record.Field(name)
}
