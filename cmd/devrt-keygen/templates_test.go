package main

import (
	"strings"
	"testing"
)

func mustContain(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Errorf("output missing %q", substr)
	}
}

func TestGoKeyName(t *testing.T) {
	tests := map[string]string{
		"a":            "QKeyA",
		"1":            "QKey1",
		"bracket_left": "QKeyBracketLeft",
		"kp_0":         "QKeyKp0",
		"shift_r":      "QKeyShiftR",
		"ac_bookmarks": "QKeyAcBookmarks",
	}
	for in, want := range tests {
		if got := goKeyName(in); got != want {
			t.Errorf("goKeyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateQKeyCodes(t *testing.T) {
	list := &RawKeyList{Keys: []RawKey{
		{Name: "unmapped"},
		{Name: "ret", PearPC: "Return"},
		{Name: "backslash", PearPC: `\`},
	}}
	output, err := GenerateQKeyCodes("input", list)
	if err != nil {
		t.Fatalf("GenerateQKeyCodes failed: %v", err)
	}

	mustContain(t, output, "// Code generated by devrt-keygen. DO NOT EDIT.")
	mustContain(t, output, "package input")
	mustContain(t, output, "QKeyUnmapped QKeyCode = iota")
	mustContain(t, output, "\tQKeyRet\n")
	mustContain(t, output, "QKeyCodeMax\n)")
	mustContain(t, output, `{"ret", "Return"},`)
	mustContain(t, output, `{"backslash", "\\"},`)
	mustContain(t, output, `{"unmapped", ""},`)
}
