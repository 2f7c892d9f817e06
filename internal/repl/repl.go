// Package repl drives a multi-turn NovaLang session: each line the user
// enters is compiled as its own bytecode.Program and appended to the same
// machine.VM, so a global defined in one turn is visible in the next.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"novalang/internal/compiler"
	"novalang/internal/machine"
	"novalang/internal/natives"
	"novalang/internal/parser"
)

const prompt = ">> "

// Run reads lines from in, prints the prompt and any output/errors to out,
// and exits when the user types "quit" or "Quit" or closes the input stream.
func Run(in io.Reader, out io.Writer) {
	bw := bufio.NewWriter(out)
	defer bw.Flush()

	vm := machine.New(bw)
	for _, n := range natives.Common(bw) {
		vm.RegisterNative(n)
	}

	scanner := bufio.NewScanner(in)
	turn := 0
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "quit" || line == "Quit" {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		turn++
		file := fmt.Sprintf("repl:%d", turn)

		statements, err := parser.Parse(line, file)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		prog, err := compiler.New(file).Generate(statements)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		entry := vm.LoadProgram(prog)
		code := vm.Start(entry)
		bw.Flush()
		if code != 0 {
			vm.ReportError(out)
		}
	}
}
