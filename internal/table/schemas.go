package table

// Joined field names shared by the source schemas and the metric deriver.
const (
	FieldDistrict            = "district"
	FieldPopulation          = "population"
	FieldPetRegistrations    = "pet_registrations"
	FieldInfrastructureCount = "infrastructure_count"
)

// PopulationSchema reads resident population per district. Seoul open-data
// exports use 동별 or 자치구 for the district column.
func PopulationSchema() Schema {
	return Schema{
		Name: "population",
		Key:  Column{Field: FieldDistrict, Names: []string{"동별", "자치구", "시군구", "구", "district", "gu"}},
		Columns: []Column{
			{Field: FieldPopulation, Names: []string{"인구수", "인구", "합계", "population"}, Type: Int, Nullable: true},
		},
	}
}

// PetsSchema reads registered companion animals per district.
func PetsSchema() Schema {
	return Schema{
		Name: "pets",
		Key:  Column{Field: FieldDistrict, Names: []string{"자치구", "시군구", "동별", "구", "district", "gu"}},
		Columns: []Column{
			{Field: FieldPetRegistrations, Names: []string{"등록수", "반려동물등록수", "반려동물 등록수", "count", "registrations"}, Type: Int, Nullable: true},
		},
	}
}

// InfrastructureSchema reads pet facility counts per district.
func InfrastructureSchema() Schema {
	return Schema{
		Name: "infrastructure",
		Key:  Column{Field: FieldDistrict, Names: []string{"자치구", "시군구", "시군구 명칭", "동별", "구", "district", "gu"}},
		Columns: []Column{
			{Field: FieldInfrastructureCount, Names: []string{"시설수", "인프라수", "count", "facilities"}, Type: Int, Nullable: true},
		},
	}
}
