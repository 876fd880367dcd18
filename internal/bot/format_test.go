package bot

import "testing"

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{50000, "50,000"},
		{1000000, "1,000,000"},
		{-50000, "-50,000"},
		{123456789, "123,456,789"},
	}

	for _, tt := range tests {
		got := formatAmount(tt.in)
		if got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRefCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg    string
		want   string
		wantOK bool
	}{
		{"REF_John", "John", true},
		{"REF_REFXYZ12345", "REFXYZ12345", true},
		{"REF_", "", false},
		{"John", "", false},
		{"", "", false},
		{"ref_John", "", false},
	}

	for _, tt := range tests {
		got, ok := parseRefCode(tt.arg)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseRefCode(%q) = (%q, %v), want (%q, %v)", tt.arg, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInviteLink(t *testing.T) {
	t.Parallel()

	b := &Bot{botName: "bali_referral_bot"}

	got := b.inviteLink("John483")
	want := "t.me/bali_referral_bot?start=REF_John483"
	if got != want {
		t.Fatalf("inviteLink = %q, want %q", got, want)
	}
}
