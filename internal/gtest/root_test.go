package gtest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGoldenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bignum.json")
	if _, err := execute(t, "golden", "-w", "32", path); err != nil {
		t.Fatalf("golden: %v", err)
	}
	g, err := LoadGolden(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Widths) != 1 || g.Widths[0] != 32 || len(g.Routines) != 3 {
		t.Errorf("golden widths %v, routines %v", g.Widths, g.Routines)
	}
	if g.Hash != hashText(g.Text) {
		t.Error("stored hash does not match stored text")
	}

	out, err := execute(t, "check", path)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[PASS]") {
		t.Errorf("check output %q", out)
	}
}

func TestCheckReportsDiff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bignum.json")
	if _, err := execute(t, "golden", "-w", "64", "-r", "add", path); err != nil {
		t.Fatal(err)
	}
	g, err := LoadGolden(path)
	if err != nil {
		t.Fatal(err)
	}
	g.Text = strings.Replace(g.Text, "v8 = v2 + v5 + carry", "v8 = v2 + v5", 1)

	diff, err := Check(g, false)
	if !errors.Is(err, ErrGoldenMismatch) {
		t.Fatalf("Check error = %v, want ErrGoldenMismatch", err)
	}
	if !strings.Contains(diff, "v8 = v2 + v5 + carry") {
		t.Errorf("diff does not show the changed line:\n%s", diff)
	}
}

func TestVerify(t *testing.T) {
	out, err := execute(t, "verify", "-n", "20", "-w", "8,16,32,64")
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if strings.Count(out, "[PASS]") != 4 {
		t.Errorf("verify output:\n%s", out)
	}
}

func TestVerifyFileRejectsBrokenCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bignum.c")
	golden := filepath.Join(t.TempDir(), "bignum.json")
	if _, err := execute(t, "golden", "-w", "64", golden); err != nil {
		t.Fatal(err)
	}
	g, err := LoadGolden(golden)
	if err != nil {
		t.Fatal(err)
	}
	broken := strings.Replace(g.Text, "v8 = v2 + v5 + carry", "v8 = v2 + v5", 1)
	if broken == g.Text {
		t.Fatal("expected top word addition not found")
	}
	if err := os.WriteFile(path, []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "verify", "-n", "20", "-w", "64", path); err == nil {
		t.Error("verify accepted code that drops a carry")
	}
}
