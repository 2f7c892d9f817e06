// Command novai compiles and runs a NovaLang source file, or starts an
// interactive REPL when invoked with no arguments.
package main

import (
	"bufio"
	"fmt"
	"os"

	"novalang/internal/compiler"
	"novalang/internal/machine"
	"novalang/internal/natives"
	"novalang/internal/parser"
	"novalang/internal/repl"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "novai [file]",
		Short: "Run a NovaLang program, or start a REPL with no arguments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				repl.Run(os.Stdin, os.Stdout)
				return nil
			}
			return runFile(args[0])
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	statements, err := parser.Parse(string(src), path)
	if err != nil {
		return err
	}

	prog, err := compiler.New(path).Generate(statements)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	vm := machine.New(out)
	for _, n := range natives.Common(out) {
		vm.RegisterNative(n)
	}

	entry := vm.LoadProgram(prog)
	code := vm.Start(entry)
	out.Flush()

	if code != 0 {
		vm.ReportError(os.Stderr)
		os.Exit(1)
	}
	return nil
}
