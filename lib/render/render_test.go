// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/base64"
	"errors"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/nodestrap/lib/bootcontext"
	"github.com/bureau-foundation/nodestrap/lib/testutil"
)

func fullContext(overrides map[string]string) *bootcontext.Context {
	fields := map[string]string{
		bootcontext.FieldValidationKey:          "-----BEGIN KEY-----\nabc\n-----END KEY-----",
		bootcontext.FieldEncryptedDataBagSecret: "s3cr3t",
		bootcontext.FieldConfigContent:          "chef_server_url \"https://chef.example/organizations/ops\"\nlog_level :info",
		bootcontext.FieldRunList:                "recipe[base],role[web]",
		bootcontext.FieldInstallCommand:         "echo install_command",
		bootcontext.FieldStartCommand:           "echo start_command",
		bootcontext.FieldBootstrapDirectory:     `C:\chef`,
		bootcontext.FieldLocalDownloadPath:      `C:\Program Files\chef\chef-client-latest.msi`,
		bootcontext.FieldInstallerURL:           "https://omnitruck.chef.io/stable/chef/download?m=x86_64&p=windows",
	}
	for name, value := range overrides {
		fields[name] = value
	}
	return bootcontext.New(fields)
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()

	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			template, err := Builtin(name)
			if err != nil {
				t.Fatalf("Builtin: %v", err)
			}
			first, err := Render(template, fullContext(nil))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			second, err := Render(template, fullContext(nil))
			if err != nil {
				t.Fatalf("second Render: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Error("two renders of the same input differ")
			}
			if first.Digest() != second.Digest() {
				t.Errorf("digest %s != %s", first.Digest(), second.Digest())
			}
			if len(first.Units) != len(template.Sections) {
				t.Errorf("got %d units, want %d", len(first.Units), len(template.Sections))
			}
			for index, unit := range first.Units {
				if unit.Index != index {
					t.Errorf("unit %q index = %d, want %d", unit.Name, unit.Index, index)
				}
				if strings.Contains(unit.Command, "${") {
					t.Errorf("unit %q still contains a placeholder: %s", unit.Name, unit.Command)
				}
			}
		})
	}
}

func TestRenderDigestChangesWithContext(t *testing.T) {
	t.Parallel()

	template, err := Builtin(PosixSH)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	first, err := Render(template, fullContext(nil))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := Render(template, fullContext(map[string]string{bootcontext.FieldRunList: "role[db]"}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.Digest() == second.Digest() {
		t.Error("digest did not change when a field changed")
	}
}

func TestRenderUndefinedPlaceholder(t *testing.T) {
	t.Parallel()

	template := &Template{
		Name: "partial",
		Sections: []Section{
			{Name: "ok", Kind: "noop", Run: "echo ${present}"},
			{Name: "broken", Kind: "download", Run: "curl -o ${zeta} ${alpha} ${alpha}"},
		},
	}
	script, err := Render(template, bootcontext.New(map[string]string{"present": "x"}))
	if script != nil {
		t.Error("Render returned a partial script alongside an error")
	}
	var undefined *UndefinedPlaceholderError
	if !errors.As(err, &undefined) {
		t.Fatalf("Render error = %v, want *UndefinedPlaceholderError", err)
	}
	if undefined.Section != "broken" {
		t.Errorf("Section = %q, want broken", undefined.Section)
	}
	if want := []string{"alpha", "zeta"}; !reflect.DeepEqual(undefined.Fields, want) {
		t.Errorf("Fields = %v, want %v", undefined.Fields, want)
	}
}

func TestRenderUndefinedAcrossSections(t *testing.T) {
	t.Parallel()

	template := &Template{
		Name: "two-bad",
		Sections: []Section{
			{Name: "first", Kind: "a", Run: "${one}"},
			{Name: "second", Kind: "b", Run: "${two}"},
		},
	}
	_, err := Render(template, bootcontext.New(nil))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"one", "two"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	var undefined *UndefinedPlaceholderError
	if !errors.As(err, &undefined) {
		t.Errorf("joined error does not unwrap to *UndefinedPlaceholderError")
	}
}

func TestRenderEmptyValueIsDefined(t *testing.T) {
	t.Parallel()

	// Presence is what matters; bootcontext enforces non-empty
	// required fields before rendering.
	template := &Template{Name: "t", Sections: []Section{{Name: "s", Kind: "k", Run: "echo ${blank}"}}}
	script, err := Render(template, bootcontext.New(map[string]string{"blank": ""}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := script.Units[0].Command; got != "echo ''" {
		t.Errorf("command = %q, want echo ''", got)
	}
}

func TestRenderDialectDefaults(t *testing.T) {
	t.Parallel()

	values := bootcontext.New(map[string]string{"path": `C:\it's 100%`})
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectPOSIX, `dir '` + `C:\it'\''s 100%` + `'`},
		{"", `dir '` + `C:\it'\''s 100%` + `'`},
		{DialectBatch, `dir "C:\it's 100%%"`},
		{DialectPowerShell, `dir 'C:\it''s 100%'`},
	}
	for _, test := range tests {
		t.Run(string(test.dialect), func(t *testing.T) {
			t.Parallel()
			template := &Template{Name: "t", Dialect: test.dialect, Sections: []Section{{Name: "s", Kind: "k", Run: "dir ${path}"}}}
			script, err := Render(template, values)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got := script.Units[0].Command; got != test.want {
				t.Errorf("command = %q, want %q", got, test.want)
			}
		})
	}
}

func TestRenderQuotingError(t *testing.T) {
	t.Parallel()

	template := &Template{Name: "t", Dialect: DialectBatch, Sections: []Section{{Name: "write", Kind: "k", Run: "echo ${value}"}}}
	for _, value := range []string{`has "quote"`, "two\nlines", "carriage\rreturn"} {
		_, err := Render(template, bootcontext.New(map[string]string{"value": value}))
		var quoting *QuotingError
		if !errors.As(err, &quoting) {
			t.Errorf("value %q: error = %v, want *QuotingError", value, err)
			continue
		}
		if quoting.Field != "value" || quoting.Filter != "batch" || quoting.Section != "write" {
			t.Errorf("value %q: QuotingError = %+v", value, quoting)
		}
	}
}

func TestRenderEscapedPlaceholder(t *testing.T) {
	t.Parallel()

	template := &Template{Name: "t", Sections: []Section{{Name: "s", Kind: "k", Run: `echo "$${HOME}" ${name|raw} $PATH`}}}
	script, err := Render(template, bootcontext.New(map[string]string{"name": "x"}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got, want := script.Units[0].Command, `echo "${HOME}" x $PATH`; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestRenderFilterChain(t *testing.T) {
	t.Parallel()

	template := &Template{Name: "t", Dialect: DialectBatch, Sections: []Section{{
		Name: "download", Kind: "download",
		Run: `powershell -Command "Get ${url|pwsh|cmdtext}"`,
	}}}
	script, err := Render(template, bootcontext.New(map[string]string{"url": "https://host/a?b=1&c='%20'"}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `powershell -Command "Get 'https://host/a?b=1&c=''%%20'''"`
	if got := script.Units[0].Command; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestWindowsRunListCrossesAsBase64(t *testing.T) {
	t.Parallel()

	template, err := Builtin(WindowsMSI)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	runList := `recipe[base],role[web&db]|x>y^z`
	script, err := Render(template, fullContext(map[string]string{bootcontext.FieldRunList: runList}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, unit := range script.Units {
		if unit.Kind != "run_list" {
			continue
		}
		if strings.Contains(unit.Command, "role[web") {
			t.Errorf("run list spliced into the command line: %q", unit.Command)
		}
		if encoded := base64.StdEncoding.EncodeToString([]byte(runList)); !strings.Contains(unit.Command, encoded) {
			t.Errorf("command = %q, want it to carry %q", unit.Command, encoded)
		}
		return
	}
	t.Fatal("windows-msi has no run_list section")
}

func TestPOSIXQuotingRoundTrip(t *testing.T) {
	t.Parallel()

	shell := testutil.RequireTool(t, "sh")

	values := []string{
		"plain",
		"with space",
		"it's",
		`back\slash "double" $HOME $(id) ` + "`id`",
		"multi\nline\n",
		"'''",
		"",
	}
	template := &Template{Name: "t", Sections: []Section{{Name: "s", Kind: "k", Run: "printf %s ${value}"}}}
	for _, value := range values {
		script, err := Render(template, bootcontext.New(map[string]string{"value": value}))
		if err != nil {
			t.Fatalf("Render(%q): %v", value, err)
		}
		output, err := exec.Command(shell, "-c", script.Units[0].Command).Output()
		if err != nil {
			t.Fatalf("sh -c %q: %v", script.Units[0].Command, err)
		}
		if string(output) != value {
			t.Errorf("round trip of %q produced %q", value, output)
		}
	}
}

func TestScriptText(t *testing.T) {
	t.Parallel()

	script := &Script{Dialect: DialectBatch, Units: []Unit{{Command: "a"}, {Command: "b"}}}
	if got := script.Text(); got != "a\r\nb\r\n" {
		t.Errorf("batch Text = %q", got)
	}
	script.Dialect = DialectPOSIX
	if got := script.Text(); got != "a\nb\n" {
		t.Errorf("posix Text = %q", got)
	}
}
