package utils

import (
	"testing"
)

type tunnelTestArgs struct {
	LocalPort   int
	ProcessName string
}

func TestGetCommandLine(t *testing.T) {
	command, args, err := GetCommandLine("{{.ProcessName}}", []string{"http", "{{.LocalPort}}"},
		tunnelTestArgs{LocalPort: 5001, ProcessName: "ngrok"})
	if err != nil {
		t.Fatalf("GetCommandLine failed: %v", err)
	}
	if command != "ngrok" {
		t.Errorf("unexpected command: %s", command)
	}
	if len(args) != 2 || args[0] != "http" || args[1] != "5001" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestGetCommandLinePlain(t *testing.T) {
	command, args, err := GetCommandLine("sh", []string{"-c", "exit 0"}, nil)
	if err != nil {
		t.Fatalf("GetCommandLine failed: %v", err)
	}
	if command != "sh" || len(args) != 2 || args[1] != "exit 0" {
		t.Errorf("plain command was altered: %s %v", command, args)
	}
}

func TestGetCommandLineBadTemplate(t *testing.T) {
	if _, _, err := GetCommandLine("{{.Broken", nil, nil); err == nil {
		t.Error("expected error for unparsable command template")
	}
	if _, _, err := GetCommandLine("ok", []string{"{{.Broken"}, nil); err == nil {
		t.Error("expected error for unparsable arg template")
	}
}

func TestPath2ProcessName(t *testing.T) {
	cases := map[string]string{
		"/usr/local/bin/ngrok": "ngrok",
		"ngrok":                "ngrok",
		"  ./venv/bin/python ": "python",
	}
	for path, want := range cases {
		if got := Path2ProcessName(path); got != want {
			t.Errorf("Path2ProcessName(%q) = %q, want %q", path, got, want)
		}
	}
}
