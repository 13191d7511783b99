package factcheck

import "testing"

func TestNeedsContext(t *testing.T) {
	tests := []struct {
		statement string
		want      bool
	}{
		{"He works at Google", true},
		{"Water freezes at 0°C", false},
		{"She's the mayor now.", true},
		{"Their house burned down.", true},
		{"I love pizza.", false},
		{"I was born in Paris.", false},
		{"I'm the tallest person here.", true},
		{"Paris is in France.", false},
		{"Dogs bark.", false},
		// substring matching is deliberate: "the" contains "he"
		{"The earth is flat.", true},
		{"IT IS RAINING", true},
	}

	for _, tt := range tests {
		t.Run(tt.statement, func(t *testing.T) {
			if got := NeedsContext(tt.statement); got != tt.want {
				t.Errorf("NeedsContext(%q) = %v, want %v", tt.statement, got, tt.want)
			}
		})
	}
}

func TestContextFor(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "ambiguous with transcript",
			req:  Request{Statement: "He works at Google.", Transcript: "Sam is my brother."},
			want: "Sam is my brother. He works at Google.",
		},
		{
			name: "self-contained",
			req:  Request{Statement: "Water freezes at 0°C.", Transcript: "Sam is my brother."},
			want: "",
		},
		{
			name: "ambiguous without transcript",
			req:  Request{Statement: "He works at Google."},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContextFor(tt.req); got != tt.want {
				t.Errorf("ContextFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
