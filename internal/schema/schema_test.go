package schema_test

import (
	"testing"

	"github.com/dataprof/dataprof/internal/models"
	"github.com/dataprof/dataprof/internal/schema"
)

func TestDefaultRegistryCoversAllFamilies(t *testing.T) {
	reg := schema.Default()
	families := []string{
		schema.FamilyFD, schema.FamilyAFD, schema.FamilyCFD, schema.FamilyIND,
		schema.FamilyAIND, schema.FamilyUCC, schema.FamilyAUCC, schema.FamilyOD,
		schema.FamilyAR, schema.FamilyDD, schema.FamilyNAR, schema.FamilyDC,
		schema.FamilyAC, schema.FamilySFD, schema.FamilyMD,
	}
	for _, fam := range families {
		fs, err := reg.SchemaFor(fam)
		if err != nil {
			t.Errorf("family %q missing: %v", fam, err)
			continue
		}
		if fs.DefaultAlgorithm == "" {
			t.Errorf("family %q has no default algorithm", fam)
		}
		if !fs.Permits(fs.DefaultAlgorithm) {
			t.Errorf("family %q does not permit its own default %q", fam, fs.DefaultAlgorithm)
		}
	}
	if len(reg.Families()) != len(families) {
		t.Errorf("expected %d families, got %d", len(families), len(reg.Families()))
	}
}

func TestSchemaForUnknownFamily(t *testing.T) {
	_, err := schema.Default().SchemaFor("xd")
	if !models.IsValidation(err, models.ErrUnknownFamily) {
		t.Errorf("expected unknown family error, got %v", err)
	}
}

func TestMergeDefaults(t *testing.T) {
	reg := schema.Default()
	fs, err := reg.SchemaFor(schema.FamilyAR)
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}

	merged, err := schema.MergeDefaults(fs, map[string]any{"minsup": 0.2})
	if err != nil {
		t.Fatalf("MergeDefaults failed: %v", err)
	}
	if merged["minsup"] != 0.2 {
		t.Errorf("override lost: %v", merged["minsup"])
	}
	if merged["minconf"] != 0.5 {
		t.Errorf("default not applied: %v", merged["minconf"])
	}
	if merged["input_format"] != "tabular" {
		t.Errorf("string default not applied: %v", merged["input_format"])
	}
}

func TestMergeDefaultsEmptyFamily(t *testing.T) {
	reg := schema.Default()
	fs, err := reg.SchemaFor(schema.FamilyDD)
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}
	merged, err := schema.MergeDefaults(fs, nil)
	if err != nil {
		t.Fatalf("MergeDefaults failed: %v", err)
	}
	if len(merged) != 0 {
		t.Errorf("family without parameters must merge to an empty mapping, got %v", merged)
	}
}

func TestMergeDefaultsIsIdempotent(t *testing.T) {
	reg := schema.Default()
	fs, err := reg.SchemaFor(schema.FamilyNAR)
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}

	overrides := map[string]any{"minsup": 0.3}
	first, err := schema.MergeDefaults(fs, overrides)
	if err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	second, err := schema.MergeDefaults(fs, first)
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("merge changed size: %d vs %d", len(first), len(second))
	}
	for k, v := range first {
		if second[k] != v {
			t.Errorf("key %q changed across merges: %v vs %v", k, v, second[k])
		}
	}
	if len(overrides) != 1 {
		t.Errorf("merge mutated the overrides map: %v", overrides)
	}
}

func TestMergeDefaultsRejections(t *testing.T) {
	reg := schema.Default()

	fd, err := reg.SchemaFor(schema.FamilyFD)
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}
	if _, err := schema.MergeDefaults(fd, map[string]any{"lhs": 3}); !models.IsValidation(err, models.ErrUnknownParameter) {
		t.Errorf("undeclared key: expected unknown parameter, got %v", err)
	}
	if _, err := schema.MergeDefaults(fd, map[string]any{"max_lhs": -1}); !models.IsValidation(err, models.ErrInvalidParameterValue) {
		t.Errorf("negative max_lhs: expected invalid value, got %v", err)
	}
	if _, err := schema.MergeDefaults(fd, map[string]any{"max_lhs": 2.5}); !models.IsValidation(err, models.ErrInvalidParameterValue) {
		t.Errorf("fractional int: expected invalid value, got %v", err)
	}
	if _, err := schema.MergeDefaults(fd, map[string]any{"error": 1.5}); !models.IsValidation(err, models.ErrInvalidParameterValue) {
		t.Errorf("error above 1: expected invalid value, got %v", err)
	}

	ar, err := reg.SchemaFor(schema.FamilyAR)
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}
	if _, err := schema.MergeDefaults(ar, map[string]any{"input_format": "wide"}); !models.IsValidation(err, models.ErrInvalidParameterValue) {
		t.Errorf("enum violation: expected invalid value, got %v", err)
	}

	// Integer values widen into float parameters.
	if merged, err := schema.MergeDefaults(ar, map[string]any{"minsup": 1}); err != nil {
		t.Errorf("int for float rejected: %v", err)
	} else if merged["minsup"] != 1.0 {
		t.Errorf("expected widened 1.0, got %v", merged["minsup"])
	}
}

func TestFamilyForAlgorithm(t *testing.T) {
	reg := schema.Default()
	cases := []struct {
		algorithm string
		params    map[string]any
		family    string
	}{
		{"hyfd", nil, schema.FamilyFD},
		{"pyro", nil, schema.FamilyFD},
		{"pyro", map[string]any{"error": 0.05}, schema.FamilyAFD},
		{"pyro", map[string]any{"error": 0}, schema.FamilyFD},
		{"tane", map[string]any{"error": 0.1}, schema.FamilyAFD},
		{"spider", nil, schema.FamilyIND},
		{"spider", map[string]any{"error": 0.05}, schema.FamilyAIND},
		{"pyroucc", nil, schema.FamilyUCC},
		{"pyroucc", map[string]any{"error": 0.05}, schema.FamilyAUCC},
		{"apriori", nil, schema.FamilyAR},
		{"order", nil, ""},
	}
	for _, tc := range cases {
		family, ok := reg.FamilyForAlgorithm(tc.algorithm, tc.params)
		if !ok {
			t.Errorf("%s: no family resolved", tc.algorithm)
			continue
		}
		if family != tc.family {
			t.Errorf("%s with %v: expected family %q, got %q", tc.algorithm, tc.params, tc.family, family)
		}
	}

	if _, ok := reg.FamilyForAlgorithm("warp", nil); ok {
		t.Error("unknown algorithm must not resolve")
	}
}
