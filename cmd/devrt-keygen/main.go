// Command devrt-keygen generates the QKeyCode enum of package input from a
// key list YAML file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

func main() {
	keysPath := flag.String("keys", "", "Path to the key list YAML")
	output := flag.String("output", "", "Output Go file")
	pkg := flag.String("package", "input", "Package name of the generated file")
	flag.Parse()

	if *keysPath == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: devrt-keygen -keys <path> -output <file> [-package <name>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*keysPath, *output, *pkg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(keysPath, output, pkg string) error {
	list, err := LoadKeyList(keysPath)
	if err != nil {
		return err
	}
	code, err := GenerateQKeyCodes(pkg, list)
	if err != nil {
		return err
	}
	if err := writeFormatted(output, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s (%d keys)\n", output, len(list.Keys))
	return nil
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Keep the raw output around for debugging the template.
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
