package config

import (
	"errors"
	"testing"
)

func TestParseAgentConfig(t *testing.T) {
	data := []byte(`
global:
  enabled: true
  port: 6556
  only_from:
    - 127.0.0.1
    - 10.0.0.0/8
winperf:
  enabled: false
logfiles: {}
`)

	f, err := ParseAgentConfig(data)
	if err != nil {
		t.Fatalf("ParseAgentConfig failed: %v", err)
	}

	names := make([]string, 0, len(f.Sections))
	for _, s := range f.Sections {
		names = append(names, s.Name)
	}
	want := []string{"global", "winperf", "logfiles"}
	if len(names) != len(want) {
		t.Fatalf("sections = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("section[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	global, ok := f.Section("global")
	if !ok || !global.Enabled {
		t.Fatalf("global section = %+v, %v", global, ok)
	}
	if global.Values["port"] != 6556 {
		t.Errorf("global.port = %v", global.Values["port"])
	}
	if list, ok := global.Values["only_from"].([]interface{}); !ok || len(list) != 2 {
		t.Errorf("global.only_from = %#v", global.Values["only_from"])
	}

	if s, _ := f.Section("winperf"); s.Enabled {
		t.Error("winperf should be disabled")
	}
	if s, _ := f.Section("logfiles"); !s.Enabled {
		t.Error("section without enabled key should default to enabled")
	}
}

func TestParseAgentConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"scalar root", "just a string\n"},
		{"sequence root", "- a\n- b\n"},
		{"section not mapping", "global: 5\n"},
		{"enabled not bool", "global:\n  enabled: maybe\n"},
		{"syntax error", "global: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAgentConfig([]byte(tt.data))
			if !errors.Is(err, ErrAgentConfig) {
				t.Errorf("error = %v, want ErrAgentConfig", err)
			}
		})
	}
}
