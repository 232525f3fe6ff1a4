package updater

import (
	"errors"
	"reflect"
	"testing"
)

func TestInstallerCommand(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		mode  Mode
		force bool
		want  []string
	}{
		{"msi quiet", KindMSI, ModeQuiet, false, []string{"msiexec", "/i", "p", "/qn", "/norestart"}},
		{"msi quiet force", KindMSI, ModeQuiet, true, []string{"msiexec", "/i", "p", "/qn", "/norestart", "REINSTALL=ALL", "REINSTALLMODE=vamus"}},
		{"msi interactive", KindMSI, ModeInteractive, false, []string{"msiexec", "/i", "p"}},
		{"deb", KindDeb, ModeQuiet, false, []string{"dpkg", "-i", "p"}},
		{"deb force", KindDeb, ModeQuiet, true, []string{"dpkg", "--force-all", "-i", "p"}},
		{"rpm quiet", KindRPM, ModeQuiet, false, []string{"rpm", "-U", "--quiet", "p"}},
		{"rpm interactive force", KindRPM, ModeInteractive, true, []string{"rpm", "-U", "-vh", "--replacepkgs", "--force", "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InstallerCommand(tt.kind, tt.mode, "p", tt.force)
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InstallerCommand = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstallerCommand_UnknownKind(t *testing.T) {
	if _, err := InstallerCommand("zip", ModeQuiet, "p", false); !errors.Is(err, ErrUnexpectedKind) {
		t.Errorf("err = %v, want ErrUnexpectedKind", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"msi", KindMSI, false},
		{"MSI", KindMSI, false},
		{"deb", KindDeb, false},
		{"rpm", KindRPM, false},
		{"exe", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}

func TestKindFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
		ok   bool
	}{
		{`C:\ProgramData\checkmk\agent\update\check_mk_agent.msi`, KindMSI, true},
		{"/var/lib/cmkagent/update/check-mk-agent_2.3.0-1_amd64.deb", KindDeb, true},
		{"agent.RPM", KindRPM, true},
		{"agent.tar.gz", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := KindFromPath(tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("KindFromPath(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
