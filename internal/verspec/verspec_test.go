package verspec

import "testing"

func TestParseKeywords(t *testing.T) {
	tests := map[string]Kind{
		"master": KindMaster,
		"stable": KindStable,
		"latest": KindLatest,
	}
	for in, want := range tests {
		s, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		if s.Kind != want {
			t.Errorf("Parse(%q).Kind = %v, want %v", in, s.Kind, want)
		}
	}
}

func TestParseMasterPinned(t *testing.T) {
	s, err := Parse("master@0.16.0-dev.565+f50c64797")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindMasterPinned {
		t.Fatalf("Kind = %v, want KindMasterPinned", s.Kind)
	}
	if s.DevString != "0.16.0-dev.565+f50c64797" {
		t.Errorf("DevString = %q", s.DevString)
	}
}

func TestParseSemver(t *testing.T) {
	tests := []struct {
		in       string
		major    int
		minor    int
		hasPatch bool
		patch    int
		pre      string
	}{
		{"0.13.0", 0, 13, true, 0, ""},
		{"0.14", 0, 14, false, 0, ""},
		{"1", 1, 0, false, 0, ""},
		{"v0.13.0", 0, 13, true, 0, ""},
		{"0.13.0-beta.1", 0, 13, true, 0, "beta.1"},
	}
	for _, tt := range tests {
		s, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.in, err)
		}
		if s.Kind != KindSemver {
			t.Fatalf("Parse(%q).Kind = %v, want KindSemver", tt.in, s.Kind)
		}
		if s.Major != tt.major || s.Minor != tt.minor || s.HasPatch != tt.hasPatch || s.Patch != tt.patch || s.PreRelease != tt.pre {
			t.Errorf("Parse(%q) = %+v, want major=%d minor=%d hasPatch=%v patch=%d pre=%q",
				tt.in, s, tt.major, tt.minor, tt.hasPatch, tt.patch, tt.pre)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "not-a-version", "0.x.0", "master@"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	// parse(s).display() |> parse is identity, for all specs s that parse.
	for _, in := range []string{"master", "stable", "latest", "0.13.0", "0.14", "1", "master@0.16.0-dev.1+abc"} {
		s1, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		s2, err := Parse(s1.Literal)
		if err != nil {
			t.Fatalf("re-Parse(%q) error: %v", s1.Literal, err)
		}
		if s1 != s2 {
			t.Errorf("round trip mismatch for %q: %+v != %+v", in, s1, s2)
		}
	}
}

func TestNormalizeAutoCompletesPatch(t *testing.T) {
	s, _ := Parse("0.14")
	r := s.Normalize()
	if r.Major != 0 || r.Minor != 14 || r.Patch != 0 {
		t.Errorf("Normalize() = %+v, want 0.14.0", r)
	}
	// The literal is preserved for diagnostics; only the resolved value auto-fills.
	if s.Literal != "0.14" {
		t.Errorf("Literal mutated: %q", s.Literal)
	}
}

func TestResolvedEqual(t *testing.T) {
	a := Resolved{Major: 0, Minor: 13, Patch: 0}
	b := Resolved{Major: 0, Minor: 13, Patch: 0}
	if !a.Equal(b) {
		t.Error("expected equal semver")
	}

	m1 := Resolved{IsMaster: true, DevString: "0.16.0-dev.1+aaa"}
	m2 := Resolved{IsMaster: true, DevString: "0.16.0-dev.1+aaa"}
	m3 := Resolved{IsMaster: true, DevString: "0.16.0-dev.2+bbb"}
	if !m1.Equal(m2) {
		t.Error("expected equal dev strings to be equal")
	}
	if m1.Equal(m3) {
		t.Error("expected different dev strings to be unequal")
	}
}

func TestResolvedLessMasterIsNewer(t *testing.T) {
	release := Resolved{Major: 0, Minor: 14, Patch: 0}
	master := Resolved{IsMaster: true, DevString: "0.16.0-dev.1+aaa"}
	if !release.Less(master) {
		t.Error("expected release to be less than master")
	}
	if master.Less(release) {
		t.Error("expected master to not be less than release")
	}
}

func TestParseZigversion(t *testing.T) {
	tests := []struct {
		contents string
		want     string
		ok       bool
	}{
		{"0.13.0\n", "0.13.0", true},
		{"# a comment\n0.13.0\n", "0.13.0", true},
		{"\n\n  \n", "", false},
		{"", "", false},
		{"  0.14  \n", "0.14", true},
	}
	for _, tt := range tests {
		got, ok := ParseZigversion(tt.contents)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseZigversion(%q) = (%q, %v), want (%q, %v)", tt.contents, got, ok, tt.want, tt.ok)
		}
	}
}
