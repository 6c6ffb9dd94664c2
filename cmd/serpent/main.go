// Command serpent compiles Python-subset modules to class artifacts and
// runs them on the stack VM.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: serpent <command> [options]\n")
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  build <files>   Compile source files to .sclass artifacts\n")
		fmt.Fprintf(os.Stderr, "  run <files>     Compile and run; the first file is the main module\n")
		fmt.Fprintf(os.Stderr, "  test [paths]    Run test_ functions of test modules\n")
		fmt.Fprintf(os.Stderr, "  dump <file>     Disassemble an .sclass artifact\n")
		fmt.Fprintf(os.Stderr, "  repl            Start an interactive session\n")
		fmt.Fprintf(os.Stderr, "  lsp             Run the language server on stdio\n")
		fmt.Fprintf(os.Stderr, "\nRun 'serpent <command> -h' for command options.\n")
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var code int
	switch command {
	case "build":
		code = runBuild(args)
	case "run":
		code = runRun(args)
	case "test":
		code = runTest(args)
	case "dump":
		code = runDump(args)
	case "repl":
		code = runRepl(args)
	case "lsp":
		code = runLSP(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		code = 1
	}
	os.Exit(code)
}
