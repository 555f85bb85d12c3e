package facility

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/table"
)

var header = []string{
	"시설명", "카테고리3", "시군구 명칭", "위도", "경도", "도로명주소", "전화번호", "운영시간", "휴무일",
	"주차 가능여부", "반려동물 동반 가능정보", "반려동물 전용 정보", "입장 가능 동물 크기",
	"반려동물 제한사항", "장소(실내) 여부", "애견 동반 추가 요금", "기본 정보_장소설명",
}

func row(name, category, district string) []string {
	r := make([]string, len(header))
	r[0], r[1], r[2] = name, category, district
	r[3], r[4] = "37.5", "127.0"
	return r
}

func facilities(t *testing.T, rows ...[]string) []Facility {
	t.Helper()
	tbl, err := table.Build(append([][]string{header}, rows...), 0, Schema(), diag.NewReport())
	require.NoError(t, err)
	return LoadCatalog(tbl)
}

func catalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func TestLoadCatalog(t *testing.T) {
	r := row("행복동물병원", " 동물병원", "강남구 ")
	r[5] = "서울 강남구 테헤란로 1"
	r[9] = "가능"
	r[10] = "소형견 동반 가능"
	r[16] = "24시 진료"
	fs := facilities(t, r, row("무명", "", "마포구"))

	require.Len(t, fs, 2)
	f := fs[0]
	assert.Equal(t, "행복동물병원", f.Name)
	assert.Equal(t, "강남구", f.District)
	assert.Equal(t, "동물병원", f.Category)
	assert.Equal(t, 37.5, f.Latitude.Or(0))
	assert.Equal(t, 127.0, f.Longitude.Or(0))
	assert.Equal(t, "서울 강남구 테헤란로 1", f.Details.Address)
	assert.Equal(t, "가능", f.Details.Parking)
	assert.Equal(t, "소형견 동반 가능", f.Details.PetPolicy)
	assert.Equal(t, "24시 진료", f.Details.Description)
	assert.Equal(t, 2, f.Row)

	assert.Equal(t, Uncategorized, fs[1].Category)
}

func TestLoadCatalog_MinimalHeader(t *testing.T) {
	tbl, err := table.Build([][]string{
		{"시설명", "카테고리3", "시군구 명칭"},
		{"카페 A", "카페", "중구"},
	}, 0, Schema(), diag.NewReport())
	require.NoError(t, err)
	fs := LoadCatalog(tbl)
	require.Len(t, fs, 1)
	assert.False(t, fs[0].Latitude.Present())
	assert.Empty(t, fs[0].Details.Phone)
}

func TestAggregate_Orphan(t *testing.T) {
	fs := facilities(t,
		row("A", "카페", "Gangnam"),
		row("B", "카페", "Nonexistent"),
		row("C", "동물병원", "Gangnam"),
	)
	s := Aggregate(fs, []string{"Gangnam", "Jongno"}, catalog(t))

	assert.Equal(t, 1, s.OrphanCount)
	require.Len(t, s.Orphans, 1)
	assert.Equal(t, diag.OrphanReference{Facility: "B", District: "Nonexistent", Category: "카페", Row: 3}, s.Orphans[0])

	assert.Equal(t, []DistrictCategoryCount{
		{District: "Gangnam", Category: "동물병원", Count: 1},
		{District: "Gangnam", Category: "카페", Count: 1},
	}, s.PerDistrict)
	assert.Equal(t, []CategoryCount{{"동물병원", 1}, {"카페", 2}}, s.Global)
	assert.Equal(t, 3, s.Total)

	_, ok := s.PerDistrictCounts()[Key{District: "Nonexistent", Category: "카페"}]
	assert.False(t, ok)
}

func TestAggregate_EmptyDistrictIsOrphan(t *testing.T) {
	fs := facilities(t, row("A", "카페", " "))
	s := Aggregate(fs, []string{"Gangnam"}, catalog(t))
	assert.Equal(t, 1, s.OrphanCount)
	assert.Empty(t, s.PerDistrict)
	assert.Equal(t, 1, s.GlobalCounts()["카페"])
}

func TestAggregate_CatalogOrdering(t *testing.T) {
	fs := facilities(t,
		row("1", "펜션", "A"),
		row("2", "zoo", "A"),
		row("3", "동물병원", "B"),
		row("4", "aquarium", "A"),
		row("5", "카페", "A"),
		row("6", "", "B"),
	)
	s := Aggregate(fs, []string{"A", "B"}, catalog(t))

	var labels []string
	for _, c := range s.Global {
		labels = append(labels, c.Category)
	}
	assert.Equal(t, []string{"동물병원", "카페", "펜션", "aquarium", Uncategorized, "zoo"}, labels)

	assert.Equal(t, []CategoryCount{{"카페", 1}, {"펜션", 1}, {"aquarium", 1}, {"zoo", 1}}, s.ForDistrict("A"))
	assert.Equal(t, []CategoryCount{{"동물병원", 1}, {Uncategorized, 1}}, s.ForDistrict("B"))
}

func TestAggregate_Idempotent(t *testing.T) {
	fs := facilities(t,
		row("A", "카페", "X"),
		row("B", "미용", "Y"),
		row("C", "카페", "Z"),
		row("D", "식당", "X"),
		row("E", "식당", "X"),
	)
	c := catalog(t)
	first := Aggregate(fs, []string{"X", "Y"}, c)
	second := Aggregate(fs, []string{"X", "Y"}, c)
	assert.Equal(t, first, second)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, nil, catalog(t))
	assert.Equal(t, 0, s.OrphanCount)
	assert.NotNil(t, s.Global)
	assert.NotNil(t, s.PerDistrict)
}

func TestSummary_Report(t *testing.T) {
	fs := facilities(t, row("B", "카페", "Nowhere"))
	s := Aggregate(fs, nil, catalog(t))
	report := diag.NewReport()
	s.Report("facilities", report)
	orphans := report.Filter(diag.KindOrphan)
	require.Len(t, orphans, 1)
	assert.Equal(t, "Nowhere", orphans[0].Key)
	assert.Equal(t, 2, orphans[0].Row)
}

func TestFilterByDistrict(t *testing.T) {
	fs := facilities(t, row("A", "카페", "X"), row("B", "카페", "Y"), row("C", "미용", "X"))
	got := FilterByDistrict(fs, " X")
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "C", got[1].Name)
	assert.Empty(t, FilterByDistrict(fs, "Q"))

	assert.Len(t, FilterByCategory(fs, "카페"), 2)
}

func TestGroupByCategory(t *testing.T) {
	fs := facilities(t, row("A", "카페", "X"), row("B", "동물약국", "X"), row("C", "카페", "X"), row("D", "bakery", "X"))
	groups := GroupByCategory(fs, catalog(t))
	require.Len(t, groups, 3)

	assert.Equal(t, "동물약국", groups[0].Category.Label)
	assert.Equal(t, "pharmacy", groups[0].Category.Icon)
	assert.True(t, groups[0].Known)

	assert.Equal(t, "카페", groups[1].Category.Label)
	assert.Len(t, groups[1].Facilities, 2)

	assert.Equal(t, "bakery", groups[2].Category.Label)
	assert.Equal(t, "default", groups[2].Category.Icon)
	assert.False(t, groups[2].Known)
}

func TestDefaultCatalog(t *testing.T) {
	c := catalog(t)
	require.Len(t, c.Categories, 12)
	assert.Equal(t, "동물병원", c.Categories[0].Label)
	assert.Equal(t, "펜션", c.Categories[11].Label)

	cat, ok := c.Lookup("미용")
	require.True(t, ok)
	assert.Equal(t, "Grooming", cat.Name)

	assert.True(t, c.Less("펜션", "aaa"))
	assert.True(t, c.Less("aaa", "bbb"))
	assert.False(t, c.Less("카페", "동물병원"))
}

func TestLoadCategoryCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cats.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - label: 카페\n  - label: 식당\n"), 0o644))
	c, err := LoadCategoryCatalog(path)
	require.NoError(t, err)
	assert.True(t, c.Less("카페", "식당"))

	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - label: 카페\n  - label: \" 카페\"\n"), 0o644))
	_, err = LoadCategoryCatalog(path)
	require.Error(t, err)

	_, err = LoadCategoryCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	c, err = LoadCategoryCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Categories, 12)
}
