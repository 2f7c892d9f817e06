// Command novac compiles a NovaLang source file and prints its disassembly,
// and can encode/decode the on-disk bytecode file format.
package main

import (
	"fmt"
	"os"

	"novalang/internal/bytecode"
	"novalang/internal/compiler"
	"novalang/internal/machine"
	"novalang/internal/parser"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "novac <file>",
		Short: "Compile a NovaLang source file and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := compileFile(args[0])
			if err != nil {
				return err
			}
			machine.Disassemble(os.Stdout, prog)
			return nil
		},
	}

	var encodeOut string
	encodeCmd := &cobra.Command{
		Use:   "encode <source>",
		Short: "Compile a source file and write it as a bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := compileFile(args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(encodeOut)
			if err != nil {
				return err
			}
			defer f.Close()
			return machine.WriteProgramFile(f, prog)
		},
	}
	encodeCmd.Flags().StringVarP(&encodeOut, "output", "o", "a.novabc", "output bytecode file path")

	decodeCmd := &cobra.Command{
		Use:   "decode <bytecode-file>",
		Short: "Read a bytecode file and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			prog, err := machine.ReadProgramFile(f)
			if err != nil {
				return err
			}
			machine.Disassemble(os.Stdout, prog)
			return nil
		},
	}

	rootCmd.AddCommand(encodeCmd, decodeCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func compileFile(path string) (*bytecode.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	statements, err := parser.Parse(string(src), path)
	if err != nil {
		return nil, err
	}
	return compiler.New(path).Generate(statements)
}
