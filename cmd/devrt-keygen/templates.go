package main

import (
	"fmt"
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"goKeyName": goKeyName,
	"quote":     func(s string) string { return fmt.Sprintf("%q", s) },
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(qkeycodeTmpl))

const qkeycodeTmpl = `{{define "qkeycode"}}// Code generated by devrt-keygen. DO NOT EDIT.

package {{.Package}}

// QKeyCode identifies a key independently of the host keyboard layout.
type QKeyCode int

const (
{{- range $i, $k := .Keys}}
{{- if eq $i 0}}
	{{goKeyName $k.Name}} QKeyCode = iota
{{- else}}
	{{goKeyName $k.Name}}
{{- end}}
{{- end}}

	// QKeyCodeMax is the number of key codes.
	QKeyCodeMax
)

// qkeyNames holds the qemu and PearPC names of each key code, in enum order.
var qkeyNames = [QKeyCodeMax]struct{ qemu, pearpc string }{
{{- range .Keys}}
	{ {{- quote .Name}}, {{quote .PearPC -}} },
{{- end}}
}
{{end}}`

type qkeycodeData struct {
	Package string
	Keys    []RawKey
}

// GenerateQKeyCodes renders the QKeyCode enum and name table.
func GenerateQKeyCodes(pkg string, list *RawKeyList) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, "qkeycode", qkeycodeData{Package: pkg, Keys: list.Keys}); err != nil {
		return "", fmt.Errorf("template qkeycode: %w", err)
	}
	return b.String(), nil
}

// goKeyName converts "bracket_left" to "QKeyBracketLeft" and "1" to "QKey1".
func goKeyName(name string) string {
	var b strings.Builder
	b.WriteString("QKey")
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
