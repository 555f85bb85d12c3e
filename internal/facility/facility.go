// Package facility maps the pet-friendly facility catalog and aggregates it
// into per-category and per-district counts.
package facility

import (
	"github.com/sells-group/petatlas/internal/keys"
	"github.com/sells-group/petatlas/internal/nullable"
	"github.com/sells-group/petatlas/internal/table"
)

// Uncategorized labels facilities with an empty category.
const Uncategorized = "uncategorized"

// Facility fields.
const (
	FieldName         = "name"
	FieldCategory     = "category"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldAddress      = "address"
	FieldPhone        = "phone"
	FieldHours        = "hours"
	FieldClosedDays   = "closed_days"
	FieldParking      = "parking"
	FieldPetPolicy    = "pet_policy"
	FieldPetExclusive = "pet_exclusive"
	FieldPetSize      = "pet_size"
	FieldRestrictions = "restrictions"
	FieldIndoor       = "indoor"
	FieldExtraFee     = "extra_fee"
	FieldDescription  = "description"
)

// Details are the descriptive attributes shown for a facility.
type Details struct {
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Hours        string `json:"hours,omitempty"`
	ClosedDays   string `json:"closed_days,omitempty"`
	Parking      string `json:"parking,omitempty"`
	PetPolicy    string `json:"pet_policy,omitempty"`
	PetExclusive string `json:"pet_exclusive,omitempty"`
	PetSize      string `json:"pet_size,omitempty"`
	Restrictions string `json:"restrictions,omitempty"`
	Indoor       string `json:"indoor,omitempty"`
	ExtraFee     string `json:"extra_fee,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Facility is one point of interest.
type Facility struct {
	Name      string                  `json:"name"`
	District  string                  `json:"district"` // canonical, may be empty
	Category  string                  `json:"category"`
	Latitude  nullable.Value[float64] `json:"latitude"`
	Longitude nullable.Value[float64] `json:"longitude"`
	Details   Details                 `json:"details"`
	Row       int                     `json:"row"`
}

func text(field string, names ...string) table.Column {
	return table.Column{Field: field, Names: names, Type: table.String, Nullable: true, Optional: true}
}

// Schema describes the Seoul companion-animal facility export.
func Schema() table.Schema {
	return table.Schema{
		Name: "facilities",
		Key:  table.Column{Field: table.FieldDistrict, Names: []string{"시군구 명칭", "시군구명", "자치구", "district"}},
		Columns: []table.Column{
			{Field: FieldName, Names: []string{"시설명", "name"}, Type: table.String, Nullable: true},
			{Field: FieldCategory, Names: []string{"카테고리3", "카테고리", "category"}, Type: table.String, Nullable: true},
			{Field: FieldLatitude, Names: []string{"위도", "latitude", "lat"}, Type: table.Float, Nullable: true, Optional: true},
			{Field: FieldLongitude, Names: []string{"경도", "longitude", "lon"}, Type: table.Float, Nullable: true, Optional: true},
			text(FieldAddress, "도로명주소", "address"),
			text(FieldPhone, "전화번호", "phone"),
			text(FieldHours, "운영시간", "hours"),
			text(FieldClosedDays, "휴무일", "closed_days"),
			text(FieldParking, "주차 가능여부", "parking"),
			text(FieldPetPolicy, "반려동물 동반 가능정보", "pet_policy"),
			text(FieldPetExclusive, "반려동물 전용 정보", "pet_exclusive"),
			text(FieldPetSize, "입장 가능 동물 크기", "pet_size"),
			text(FieldRestrictions, "반려동물 제한사항", "restrictions"),
			text(FieldIndoor, "장소(실내) 여부", "indoor"),
			text(FieldExtraFee, "애견 동반 추가 요금", "extra_fee"),
			text(FieldDescription, "기본 정보_장소설명", "description"),
		},
	}
}

// LoadCatalog maps the rows of a table built with Schema into facilities.
// District names are canonicalized; empty categories become Uncategorized.
func LoadCatalog(tbl *table.Table) []Facility {
	if tbl == nil {
		return nil
	}
	out := make([]Facility, 0, len(tbl.Rows))
	for _, r := range tbl.Rows {
		category := keys.Canonical(r.Get(FieldCategory).Str())
		if category == "" {
			category = Uncategorized
		}
		out = append(out, Facility{
			Name:      r.Get(FieldName).Str(),
			District:  keys.Canonical(r.RawKey),
			Category:  category,
			Latitude:  r.Get(FieldLatitude).Float(),
			Longitude: r.Get(FieldLongitude).Float(),
			Row:       r.Line,
			Details: Details{
				Address:      r.Get(FieldAddress).Str(),
				Phone:        r.Get(FieldPhone).Str(),
				Hours:        r.Get(FieldHours).Str(),
				ClosedDays:   r.Get(FieldClosedDays).Str(),
				Parking:      r.Get(FieldParking).Str(),
				PetPolicy:    r.Get(FieldPetPolicy).Str(),
				PetExclusive: r.Get(FieldPetExclusive).Str(),
				PetSize:      r.Get(FieldPetSize).Str(),
				Restrictions: r.Get(FieldRestrictions).Str(),
				Indoor:       r.Get(FieldIndoor).Str(),
				ExtraFee:     r.Get(FieldExtraFee).Str(),
				Description:  r.Get(FieldDescription).Str(),
			},
		})
	}
	return out
}

// FilterByDistrict returns the facilities of one district, in input order.
func FilterByDistrict(fs []Facility, district string) []Facility {
	district = keys.Canonical(district)
	var out []Facility
	for _, f := range fs {
		if f.District == district {
			out = append(out, f)
		}
	}
	return out
}

// FilterByCategory returns the facilities of one category, in input order.
func FilterByCategory(fs []Facility, category string) []Facility {
	category = keys.Canonical(category)
	var out []Facility
	for _, f := range fs {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// Group is one category's facilities, as drawn on one marker layer.
type Group struct {
	Category   Category   `json:"category"`
	Known      bool       `json:"known"`
	Facilities []Facility `json:"facilities"`
}

// GroupByCategory splits facilities into per-category groups in catalog
// order.
func GroupByCategory(fs []Facility, catalog *Catalog) []Group {
	byLabel := make(map[string][]Facility)
	var labels []string
	for _, f := range fs {
		if _, ok := byLabel[f.Category]; !ok {
			labels = append(labels, f.Category)
		}
		byLabel[f.Category] = append(byLabel[f.Category], f)
	}
	catalog.Sort(labels)

	out := make([]Group, 0, len(labels))
	for _, label := range labels {
		cat, known := catalog.Lookup(label)
		out = append(out, Group{Category: cat, Known: known, Facilities: byLabel[label]})
	}
	return out
}
