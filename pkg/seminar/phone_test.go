package seminar

import "testing"

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "hyphenated mobile number",
			input: "090-1234-5678",
			want:  "+8109012345678",
		},
		{
			name:  "full-width digits and dash",
			input: "０９０ー１２３４ー５６７８",
			want:  "+8109012345678",
		},
		{
			name:  "already e164",
			input: "+819012345678",
			want:  "+819012345678",
		},
		{
			name:  "slashes and spaces",
			input: "090/1234 5678",
			want:  "+8109012345678",
		},
		{
			name:  "landline stays unprefixed",
			input: "03-1234-5678",
			want:  "0312345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeNumber(tt.input); got != tt.want {
				t.Errorf("NormalizeNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEndpointID(t *testing.T) {
	if got := EndpointID("+819012345678"); got != "819012345678" {
		t.Errorf("EndpointID() = %q, want %q", got, "819012345678")
	}
	if got := EndpointID("819012345678"); got != "819012345678" {
		t.Errorf("EndpointID() without plus = %q, want unchanged", got)
	}
}
