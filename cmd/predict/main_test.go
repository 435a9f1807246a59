package main

import (
	"testing"

	"healthrisk/disease"
)

func TestFieldFlags(t *testing.T) {
	fields := fieldFlags{}
	if err := fields.Set("tsh=3.4"); err != nil {
		t.Fatal(err)
	}
	if err := fields.Set("age"); err == nil {
		t.Fatal("expected error for missing value")
	}
	if err := fields.Set("age=old"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	if fields["tsh"] != 3.4 {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestBuildFeatures(t *testing.T) {
	schema := disease.Thyroid.Schema()

	features, err := buildFeatures(schema, "45, 1, 0, 6.2, 1, 1.1, 80", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 7 || features[3] != 6.2 {
		t.Fatalf("unexpected features: %v", features)
	}

	features, err = buildFeatures(schema, "", fieldFlags{"tsh": 6.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if features[0] != 40 || features[3] != 6.2 {
		t.Fatalf("expected defaults with tsh override, got %v", features)
	}

	if _, err := buildFeatures(schema, "1,2", nil); err == nil {
		t.Fatal("expected length error")
	}
	if _, err := buildFeatures(schema, "45,1,0,6.2,1,1.1,80", fieldFlags{"tsh": 1}); err == nil {
		t.Fatal("expected error when both inputs are given")
	}
	if _, err := buildFeatures(schema, "45,1,0,6.2,1,1.1,abc", nil); err == nil {
		t.Fatal("expected parse error")
	}
}
