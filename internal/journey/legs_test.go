package journey

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLegs(t *testing.T) {
	data := []byte(`[
		{"destination":"Central Station","lat":12.9716,"lng":77.5946,"departure":"18:45","mode":"train","provider":"Metro Rail"},
		{"destination":"Airport T2","lat":13.1986,"lng":77.7066,"departure":"22:10","mode":"flight","provider":"IndiGo"}
	]`)

	legs, err := ParseLegs(data)
	if err != nil {
		t.Fatalf("parse legs: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0].Destination != "Central Station" || legs[0].NextMode != ModeTrain {
		t.Fatalf("unexpected first leg %+v", legs[0])
	}
	if legs[1].Departure != "22:10" {
		t.Fatalf("unexpected second leg %+v", legs[1])
	}
}

func TestParseLegsRejectsEmpty(t *testing.T) {
	if _, err := ParseLegs([]byte(`[]`)); err == nil {
		t.Fatal("empty journey should be rejected")
	}
}

func TestParseLegsRejectsInvalidLeg(t *testing.T) {
	data := []byte(`[{"destination":"Somewhere","lat":12.9,"lng":77.5,"departure":"25:99","mode":"train"}]`)
	if _, err := ParseLegs(data); err == nil {
		t.Fatal("malformed departure should be rejected")
	}
}

func TestLoadLegs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legs.json")
	data := []byte(`[{"destination":"Harbour Pier","lat":12.9,"lng":77.5,"departure":"09:30","mode":"ferry","provider":"BlueLine"}]`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	legs, err := LoadLegs(path)
	if err != nil {
		t.Fatalf("load legs: %v", err)
	}
	if len(legs) != 1 || legs[0].NextMode != ModeFerry {
		t.Fatalf("unexpected legs %+v", legs)
	}
}
