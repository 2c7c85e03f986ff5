package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeSkills(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil input", nil, nil},
		{"empty slice", []string{}, nil},
		{"only blanks", []string{"", "   ", "\t"}, nil},
		{"trims and lowercases", []string{"  Linux ", "VPN"}, []string{"linux", "vpn"}},
		{"dedupes preserving order", []string{"vpn", "Linux", "VPN", "linux"}, []string{"vpn", "linux"}},
		{"mixed", []string{" Networking", "", "networking", "Databases "}, []string{"networking", "databases"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeSkills(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("NormalizeSkills(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	if p, ok := ParsePriority(" high "); !ok || p != TicketPriorityHigh {
		t.Fatalf("expected HIGH, got %v %v", p, ok)
	}
	if _, ok := ParsePriority("critical"); ok {
		t.Fatal("expected unknown priority to be rejected")
	}
}

func TestTicketStatusTerminal(t *testing.T) {
	if TicketStatusOpen.Terminal() || TicketStatusInTriage.Terminal() {
		t.Fatal("open and in-triage are not terminal")
	}
	if !TicketStatusAssigned.Terminal() || !TicketStatusTriageFailed.Terminal() {
		t.Fatal("assigned and triage-failed are terminal")
	}
}
