package profile

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Profile!!", "my_profile"},
		{"work", "work"},
		{"Home-Office", "home_office"},
		{"  gaming  setup ", "gaming_setup"},
		{"a--b__c", "a_b_c"},
		{"TV / Couch", "tv_couch"},
		{`bad:name*?"<>|`, "badname"},
		{"Écran Principal", "écran_principal"},
		{"4K 144Hz", "4k_144hz"},
		{"!!!", ""},
		{"", ""},
		{"CON", "con_profile"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Sanitize(tt.in)
			if got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := Sanitize(got); again != got {
				t.Fatalf("Sanitize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{
		Name: "  Work ",
		Run: RunSpec{
			Before: &RunCommand{},
			After:  &RunCommand{Args: "--quiet"},
		},
	}

	got := cfg.Normalize()
	if got.Name != "Work" {
		t.Fatalf("expected trimmed name, got %q", got.Name)
	}
	if got.Run.Before != nil {
		t.Fatalf("expected empty before hook to be dropped")
	}
	if got.Run.After == nil || got.Run.After.Args != "--quiet" {
		t.Fatalf("expected args-only after hook to be kept, got %+v", got.Run.After)
	}
	if got.Run.After.Runnable() {
		t.Fatalf("args without a target must not be runnable")
	}
}

func TestConfigCloneIsDeep(t *testing.T) {
	cfg := Config{Run: RunSpec{Before: &RunCommand{Target: "a"}}}
	c := cfg.Clone()
	c.Run.Before.Target = "b"
	if cfg.Run.Before.Target != "a" {
		t.Fatalf("clone shares run command")
	}
}
