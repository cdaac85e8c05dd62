package services

import (
	"math"
	"testing"
)

func TestRelevanceScore(t *testing.T) {
	cases := []struct {
		name        string
		query       string
		title       string
		description string
		tags        []string
		category    string
		want        int
	}{
		{
			name:  "title match",
			query: "drill", title: "Cordless Drill",
			want: 10,
		},
		{
			name:  "description match",
			query: "drill", title: "Power Tool",
			description: "A cordless drill with two batteries",
			want:        5,
		},
		{
			name:  "tag match counted once",
			query: "drill", title: "Power Tool",
			tags: []string{"drill", "drills", "tools"},
			want: 5,
		},
		{
			name:  "category match",
			query: "tools", title: "Cordless Drill",
			category: "Power Tools",
			want:     7,
		},
		{
			name:  "everything matches",
			query: "drill", title: "Cordless Drill",
			description: "Best drill in town",
			tags:        []string{"drill"},
			category:    "Drills",
			want:        27,
		},
		{
			name:  "case insensitive",
			query: "DRILL", title: "cordless drill",
			want: 10,
		},
		{
			name:  "no match",
			query: "kayak", title: "Cordless Drill",
			description: "Two batteries included",
			tags:        []string{"tools"},
			category:    "Power Tools",
			want:        0,
		},
		{
			name:  "empty query",
			query: "", title: "Cordless Drill",
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RelevanceScore(tc.query, tc.title, tc.description, tc.tags, tc.category)
			if got != tc.want {
				t.Fatalf("RelevanceScore = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestHaversine(t *testing.T) {
	if d := Haversine(51.5, -0.12, 51.5, -0.12); d != 0 {
		t.Fatalf("distance to self should be 0, got %f", d)
	}

	// One degree of latitude is roughly 111.2 km everywhere.
	d := Haversine(0, 0, 1, 0)
	if math.Abs(d-111195) > 200 {
		t.Fatalf("one degree of latitude: got %f m, want ~111195 m", d)
	}

	// Paris to London, roughly 344 km.
	d = Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330000 || d > 360000 {
		t.Fatalf("Paris-London distance out of range: %f m", d)
	}
}

func TestParsePoint(t *testing.T) {
	t.Run("wkt", func(t *testing.T) {
		lat, lng, err := ParsePoint("POINT(2.3522 48.8566)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lat != 48.8566 || lng != 2.3522 {
			t.Fatalf("got lat=%f lng=%f, want lat=48.8566 lng=2.3522", lat, lng)
		}
	})

	t.Run("wkt lowercase with spaces", func(t *testing.T) {
		lat, lng, err := ParsePoint("point( -0.1278  51.5074 )")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lat != 51.5074 || lng != -0.1278 {
			t.Fatalf("got lat=%f lng=%f", lat, lng)
		}
	})

	t.Run("geojson", func(t *testing.T) {
		lat, lng, err := ParsePoint(`{"type":"Point","coordinates":[2.3522,48.8566]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lat != 48.8566 || lng != 2.3522 {
			t.Fatalf("got lat=%f lng=%f", lat, lng)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"POINT(2.3522)",
			"POINT(a b)",
			`{"coordinates":[2.3522]}`,
			"LINESTRING(0 0, 1 1)",
		} {
			if _, _, err := ParsePoint(raw); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		}
	})
}
