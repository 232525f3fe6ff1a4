package command

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"cmkagent/internal/install"
	"cmkagent/internal/legacy"
	"cmkagent/internal/logger"
	"cmkagent/internal/updater"
)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

// recorder implements every collaborator and logs the calls it receives.
type recorder struct {
	calls []string
	err   error
	jobs  []legacy.ConversionJob
	force []bool
	modes []string
}

func (r *recorder) call(name string) error {
	r.calls = append(r.calls, name)
	return r.err
}

func (r *recorder) InstallService(context.Context) error { return r.call("install") }
func (r *recorder) RemoveService(context.Context) error  { return r.call("remove") }
func (r *recorder) StageInstallArtifacts(context.Context) (install.StageReport, error) {
	return install.StageReport{Copied: []string{"plugins.cap"}}, r.call("cap")
}
func (r *recorder) StopLegacy(context.Context) error  { return r.call("stop-legacy") }
func (r *recorder) StartLegacy(context.Context) error { return r.call("start-legacy") }
func (r *recorder) Convert(job legacy.ConversionJob) (string, error) {
	r.jobs = append(r.jobs, job)
	dst := job.Destination
	if dst == "" {
		dst = legacy.DefaultDestination(job.Source)
	}
	return dst, r.call("convert")
}
func (r *recorder) CheckAndApply(_ context.Context, _ updater.Descriptor, _ string, _ updater.Mode, force bool) (updater.Outcome, error) {
	r.force = append(r.force, force)
	return updater.Applied, r.call("upgrade")
}
func (r *recorder) Test(_ context.Context, mode string) error {
	r.modes = append(r.modes, mode)
	return r.call("test")
}
func (r *recorder) Exec(context.Context) error       { return r.call("exec") }
func (r *recorder) SkypeTest(context.Context) error  { return r.call("skype-test") }
func (r *recorder) RunService(context.Context) error { return r.call("service") }

func newTestRouter(rec *recorder) (*Router, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	r := NewRouter("cmkagent", Collaborators{
		Installer:   rec,
		Legacy:      rec,
		Updater:     rec,
		Diagnostics: rec,
		Service:     rec,
	}, &out, &errOut)
	return r, &out, &errOut
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode RunMode
		wantVerb Verb
		wantArgs []string
		wantErr  bool
	}{
		{"no args is service", nil, RunModeService, "", nil, false},
		{"install", []string{"install"}, RunModeForeground, VerbInstall, nil, false},
		{"test with mode", []string{"test", "port"}, RunModeForeground, VerbTest, []string{"port"}, false},
		{"test bad mode", []string{"test", "bogus"}, 0, "", nil, true},
		{"convert one", []string{"convert", "a.ini"}, RunModeForeground, VerbConvert, []string{"a.ini"}, false},
		{"convert two", []string{"convert", "a.ini", "b.yml"}, RunModeForeground, VerbConvert, []string{"a.ini", "b.yml"}, false},
		{"convert none", []string{"convert"}, 0, "", nil, true},
		{"convert three", []string{"convert", "a", "b", "c"}, 0, "", nil, true},
		{"install surplus", []string{"install", "now"}, 0, "", nil, true},
		{"help takes anything", []string{"help", "me", "please"}, RunModeForeground, VerbHelp, []string{"me", "please"}, false},
		{"unknown", []string{"frobnicate"}, 0, "", nil, true},
		{"verbs are case sensitive", []string{"INSTALL"}, 0, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Parse(tt.args)
			if tt.wantErr {
				var ue *UsageError
				if !errors.As(err, &ue) {
					t.Fatalf("Parse(%v) error = %v, want UsageError", tt.args, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%v) error = %v", tt.args, err)
			}
			if inv.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", inv.Mode, tt.wantMode)
			}
			if inv.Command.Verb != tt.wantVerb {
				t.Errorf("Verb = %q, want %q", inv.Command.Verb, tt.wantVerb)
			}
			if got := inv.Command.Args(); len(got) != 0 || len(tt.wantArgs) != 0 {
				if !reflect.DeepEqual(got, tt.wantArgs) {
					t.Errorf("Args = %v, want %v", got, tt.wantArgs)
				}
			}
		})
	}
}

func TestDispatch_UnknownVerb(t *testing.T) {
	rec := &recorder{}
	r, out, _ := newTestRouter(rec)

	code := r.Dispatch(context.Background(), []string{"frobnicate"})
	if code != ExitUsage {
		t.Errorf("exit = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(out.String(), `Error: Provided Parameter "frobnicate" is not allowed`) {
		t.Errorf("output missing error line:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("output missing usage:\n%s", out.String())
	}
	if len(rec.calls) != 0 {
		t.Errorf("collaborators called: %v", rec.calls)
	}
}

func TestDispatch_Help(t *testing.T) {
	rec := &recorder{}
	r, out, _ := newTestRouter(rec)

	for _, args := range [][]string{{"help"}, {"help", "extra", "args"}} {
		out.Reset()
		if code := r.Dispatch(context.Background(), args); code != ExitOK {
			t.Errorf("Dispatch(%v) = %d, want %d", args, code, ExitOK)
		}
		if strings.Contains(out.String(), "Error:") {
			t.Errorf("help printed an error:\n%s", out.String())
		}
		for _, v := range Verbs() {
			if !strings.Contains(out.String(), string(v)) {
				t.Errorf("usage does not mention %q", v)
			}
		}
	}
	if len(rec.calls) != 0 {
		t.Errorf("collaborators called: %v", rec.calls)
	}
}

func TestDispatch_ValidationBeforeSideEffects(t *testing.T) {
	tests := [][]string{
		{"convert"},
		{"convert", "a", "b", "c"},
		{"test", "bogus"},
		{"upgrade", "force", "now"},
		{"install", "x"},
		{"stop-legacy", "x"},
	}

	for _, args := range tests {
		rec := &recorder{}
		r, out, _ := newTestRouter(rec)
		if code := r.Dispatch(context.Background(), args); code != ExitUsage {
			t.Errorf("Dispatch(%v) = %d, want %d", args, code, ExitUsage)
		}
		if len(rec.calls) != 0 {
			t.Errorf("Dispatch(%v) called %v before validating", args, rec.calls)
		}
		if !strings.Contains(out.String(), "Error: ") {
			t.Errorf("Dispatch(%v) printed no error line", args)
		}
	}
}

func TestDispatch_ConvertRequiresSource(t *testing.T) {
	r, out, _ := newTestRouter(&recorder{})
	r.Dispatch(context.Background(), []string{"convert"})
	if !strings.Contains(out.String(), "convert requires <inifile>") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDispatch_Routes(t *testing.T) {
	tests := []struct {
		args     []string
		wantCall string
	}{
		{nil, "service"},
		{[]string{"install"}, "install"},
		{[]string{"remove"}, "remove"},
		{[]string{"cap"}, "cap"},
		{[]string{"test"}, "test"},
		{[]string{"legacy-test"}, "test"},
		{[]string{"exec"}, "exec"},
		{[]string{"skype-test"}, "skype-test"},
		{[]string{"stop-legacy"}, "stop-legacy"},
		{[]string{"start-legacy"}, "start-legacy"},
		{[]string{"convert", "check_mk.ini"}, "convert"},
		{[]string{"upgrade"}, "upgrade"},
	}

	for _, tt := range tests {
		rec := &recorder{}
		r, _, _ := newTestRouter(rec)
		if code := r.Dispatch(context.Background(), tt.args); code != ExitOK {
			t.Errorf("Dispatch(%v) = %d, want %d", tt.args, code, ExitOK)
		}
		if want := []string{tt.wantCall}; !reflect.DeepEqual(rec.calls, want) {
			t.Errorf("Dispatch(%v) calls = %v, want %v", tt.args, rec.calls, want)
		}
	}
}

func TestDispatch_TestModes(t *testing.T) {
	rec := &recorder{}
	r, _, _ := newTestRouter(rec)
	r.Dispatch(context.Background(), []string{"test"})
	r.Dispatch(context.Background(), []string{"test", "port"})
	r.Dispatch(context.Background(), []string{"legacy-test"})

	if want := []string{"", "port", "legacy"}; !reflect.DeepEqual(rec.modes, want) {
		t.Errorf("modes = %v, want %v", rec.modes, want)
	}
}

func TestDispatch_UpgradeForce(t *testing.T) {
	rec := &recorder{}
	r, out, _ := newTestRouter(rec)
	r.Dispatch(context.Background(), []string{"upgrade"})
	r.Dispatch(context.Background(), []string{"upgrade", "force"})
	r.Dispatch(context.Background(), []string{"upgrade", "please"})

	if want := []bool{false, true, false}; !reflect.DeepEqual(rec.force, want) {
		t.Errorf("force = %v, want %v", rec.force, want)
	}
	if !strings.Contains(out.String(), "upgrade: applied") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDispatch_ConvertJob(t *testing.T) {
	rec := &recorder{}
	r, out, _ := newTestRouter(rec)
	r.Dispatch(context.Background(), []string{"convert", "check_mk.ini"})
	r.Dispatch(context.Background(), []string{"convert", "check_mk.ini", "out.yml"})

	want := []legacy.ConversionJob{
		{Source: "check_mk.ini"},
		{Source: "check_mk.ini", Destination: "out.yml"},
	}
	if !reflect.DeepEqual(rec.jobs, want) {
		t.Errorf("jobs = %+v, want %+v", rec.jobs, want)
	}
	if !strings.Contains(out.String(), "converted check_mk.ini to out.yml") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDispatch_CollaboratorError(t *testing.T) {
	rec := &recorder{err: errors.New("access denied")}
	r, out, errOut := newTestRouter(rec)

	code := r.Dispatch(context.Background(), []string{"install"})
	if code != ExitFailure {
		t.Errorf("exit = %d, want %d", code, ExitFailure)
	}
	if !strings.Contains(errOut.String(), "Error: access denied") {
		t.Errorf("errOut = %q", errOut.String())
	}
	if strings.Contains(out.String(), "Usage:") {
		t.Errorf("runtime failure printed usage:\n%s", out.String())
	}
}

func TestWriteUsage_Groups(t *testing.T) {
	var buf bytes.Buffer
	WriteUsage(&buf, "cmkagent", "")
	text := buf.String()

	last := -1
	for _, title := range groupTitles {
		i := strings.Index(text, title)
		if i < 0 {
			t.Fatalf("usage missing %q", title)
		}
		if i < last {
			t.Errorf("group %q out of order", title)
		}
		last = i
	}
	if !strings.Contains(text, "cmkagent <convert> <inifile> [yamlfile]") {
		t.Errorf("usage missing convert synopsis:\n%s", text)
	}
	if !strings.Contains(text, "cmkagent <stop-legacy|start-legacy>") {
		t.Errorf("usage missing legacy synopsis:\n%s", text)
	}
}

func TestVerbTable_EveryVerbHasHandler(t *testing.T) {
	for _, v := range Verbs() {
		spec, ok := specs[v]
		if !ok {
			t.Errorf("verb %q missing from table", v)
			continue
		}
		if v == VerbHelp {
			if spec.run != nil {
				t.Errorf("help has a handler, want usage only")
			}
			continue
		}
		if spec.run == nil {
			t.Errorf("verb %q has no handler", v)
		}
	}
	if len(specs) != len(Verbs()) {
		t.Errorf("table has %d verbs, usage order lists %d", len(specs), len(Verbs()))
	}
}
