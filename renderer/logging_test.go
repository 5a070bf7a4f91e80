package renderer

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultLogger_Routing(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newLoggerTo(&out, &errOut, "test", false)

	l.Debugf("hidden %d", 1)
	if out.Len() != 0 {
		t.Fatalf("debug logged while disabled: %q", out.String())
	}

	l.SetDebug(true)
	if !l.DebugEnabled() {
		t.Fatal("SetDebug(true) not observed")
	}
	l.Debugf("shown %d", 2)
	l.Infof("frame ready")
	l.Warnf("budget exceeded")
	l.Errorf("device lost")

	stdout := out.String()
	stderr := errOut.String()
	if !strings.Contains(stdout, "debug: shown 2") || !strings.Contains(stdout, "info: frame ready") {
		t.Errorf("stdout missing entries: %q", stdout)
	}
	if !strings.Contains(stderr, "warn: budget exceeded") || !strings.Contains(stderr, "error: device lost") {
		t.Errorf("stderr missing entries: %q", stderr)
	}
	if !strings.Contains(stdout, "[test] ") {
		t.Errorf("prefix missing: %q", stdout)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.SetDebug(true)
	if l.DebugEnabled() {
		t.Error("nop logger never enables debug")
	}
	l.Debugf("ignored")
	l.Errorf("ignored")
}
