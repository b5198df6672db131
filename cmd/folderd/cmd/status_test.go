package cmd

import (
	"bytes"
	"testing"
)

func TestStatusCmd_Flags(t *testing.T) {
	cmd := newStatusCmd()
	if cmd.Flags().Lookup("folder") == nil {
		t.Error("expected --folder flag")
	}
	if cmd.Flags().Lookup("json") == nil {
		t.Error("expected --json flag")
	}
}

func TestStatusCmd_LocalWithoutFolderReportsHint(t *testing.T) {
	cmd := newStatusCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status without a running daemon should not error, got: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("not running")) {
		t.Errorf("expected a 'not running' hint, got: %s", out.String())
	}
}
