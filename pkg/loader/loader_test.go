package loader

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/korean"

	"github.com/vanderheijden86/cograph/pkg/model"
)

func rows(t *testing.T, csvText string) []RawRecord {
	t.Helper()
	out, err := DecodeString(csvText, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	return out
}

func TestDecodeString_HeaderCaseAndBOM(t *testing.T) {
	recs := rows(t, "\ufeffsource1, SOURCE2 ,weight,Tier\nA,B,3,Gold\n\nC,D,1,\n")
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows (blank line skipped), got %d", len(recs))
	}
	if v, _ := recs[0].Get(ColumnSource); v != "A" {
		t.Errorf("expected Source1=A, got %q", v)
	}
	if v, _ := recs[0].Get(ColumnTier); v != "Gold" {
		t.Errorf("expected Tier=Gold, got %q", v)
	}
	if recs[1].Row != 2 {
		t.Errorf("expected row number 2 for second data row, got %d", recs[1].Row)
	}
}

func TestDecode_MissingColumn(t *testing.T) {
	_, err := DecodeString("Source1,Weight\nA,1\n", DecodeOptions{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	_, err = DecodeString("", DecodeOptions{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn for empty input, got %v", err)
	}
}

func TestDecode_Charset(t *testing.T) {
	text := "Source1,Source2,Weight\n서울,부산,4\n"
	encoded, err := korean.EUCKR.NewEncoder().String(text)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	recs, err := Decode(strings.NewReader(encoded), DecodeOptions{Encoding: "euc-kr"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 row, got %d", len(recs))
	}
	if v, _ := recs[0].Get(ColumnSource); v != "서울" {
		t.Errorf("expected decoded 서울, got %q", v)
	}
}

func TestDecode_UnknownEncoding(t *testing.T) {
	_, err := Decode(strings.NewReader("Source1,Source2,Weight\n"), DecodeOptions{Encoding: "klingon-8"})
	if err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestDecode_Delimiter(t *testing.T) {
	recs, err := DecodeString("Source1;Source2;Weight\nA;B;2\n", DecodeOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if v, _ := recs[0].Get(ColumnTarget); v != "B" {
		t.Errorf("expected Source2=B, got %q", v)
	}
}

func TestNormalize_DropsMissingEndpoints(t *testing.T) {
	batch := Normalize(SourceMeta{Origin: "t.csv"}, rows(t,
		"Source1,Source2,Weight\n A , B ,10\n,B,3\nA,,2\n  ,  ,1\n"))

	if batch.Len() != 1 {
		t.Fatalf("expected 1 kept record, got %d", batch.Len())
	}
	if len(batch.Skipped) != 3 {
		t.Fatalf("expected 3 skips, got %d", len(batch.Skipped))
	}
	for _, s := range batch.Skipped {
		if !errors.Is(s.Err, ErrMalformedRow) {
			t.Errorf("skip %s: expected ErrMalformedRow, got %v", s, s.Err)
		}
	}
	rec := batch.Records[0]
	if rec.Source != "A" || rec.Target != "B" {
		t.Errorf("expected trimmed endpoints A,B got %q,%q", rec.Source, rec.Target)
	}
}

func TestNormalize_InvalidWeightsExcludedFromMax(t *testing.T) {
	batch := Normalize(SourceMeta{}, rows(t,
		"Source1,Source2,Weight\nA,B,4\nB,C,abc\nC,D,\nD,E,-3\nE,F,8\n"))

	if batch.Len() != 5 {
		t.Fatalf("expected all 5 records kept, got %d", batch.Len())
	}
	if batch.MaxWeight != 8 {
		t.Errorf("expected max weight 8, got %v", batch.MaxWeight)
	}
	if batch.InvalidWeights != 3 {
		t.Errorf("expected 3 invalid weights, got %d", batch.InvalidWeights)
	}
	if got := batch.NormalizedWeight(batch.Records[0]); got != 0.5 {
		t.Errorf("expected normalized 0.5, got %v", got)
	}
	if got := batch.NormalizedWeight(batch.Records[1]); got != 0 {
		t.Errorf("expected invalid weight to normalize to 0, got %v", got)
	}
}

func TestNormalize_ZeroMaxGuard(t *testing.T) {
	batch := Normalize(SourceMeta{}, rows(t, "Source1,Source2,Weight\nA,B,0\nB,C,0\n"))
	for _, r := range batch.Records {
		if got := batch.NormalizedWeight(r); got != 0 {
			t.Errorf("expected 0 with zero max, got %v", got)
		}
	}
}

func TestNormalizer_SharedMaxAcrossSources(t *testing.T) {
	n := NewNormalizer()
	n.Add(SourceMeta{Origin: "2020.csv"}, rows(t, "Source1,Source2,Weight\nA,B,2\n"))
	n.Add(SourceMeta{Origin: "titles.csv", CategoryMarker: true}, rows(t, "Source1,Source2,Weight,Tier\nT,A,10,silver\n"))

	batch := n.Batch()
	if batch.MaxWeight != 10 {
		t.Fatalf("expected shared max 10, got %v", batch.MaxWeight)
	}
	if got := batch.NormalizedWeight(batch.Records[0]); got != 0.2 {
		t.Errorf("expected 0.2, got %v", got)
	}
	marker := batch.Records[1]
	if !marker.IsCategoryMarker || marker.Tier != model.TierSilver {
		t.Errorf("expected silver marker record, got %+v", marker)
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"3.5", 3.5, true},
		{" 1,200 ", 1200, true},
		{"1,234,567.5", 1234567.5, true},
		{"1,5", 0, false},
		{"12,50", 0, false},
		{"1,2345", 0, false},
		{",100", 0, false},
		{"0", 0, true},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-1", 0, false},
		{"x", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseWeight(tt.in)
		if got != tt.want || ok != tt.valid {
			t.Errorf("parseWeight(%q) = (%v,%v), want (%v,%v)", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}
