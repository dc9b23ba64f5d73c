package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{name: "international", input: "+31 6 12345678", region: "US", want: "+31612345678"},
		{name: "national with region", input: "06-12345678", region: "NL", want: "+31612345678"},
		{name: "us default region", input: "(201) 555-0123", region: "", want: "+12015550123"},
		{name: "unparseable keeps digits", input: "12-34", region: "NL", want: "1234"},
		{name: "empty", input: "   ", region: "NL", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.input, tc.region); got != tc.want {
				t.Fatalf("NormalizeE164(%q, %q) = %q, want %q", tc.input, tc.region, got, tc.want)
			}
		})
	}
}
