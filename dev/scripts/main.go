package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"slices"
)

func printScripts() {
	fmt.Println("Scripts:")
	var names []string
	for key := range scriptMap {
		names = append(names, key)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Println("\t" + name)
	}
}

func main() {
	flag.Parse()

	script := flag.Arg(0)
	fn, ok := scriptMap[script]
	if !ok {
		fmt.Printf(
			"you must specify a valid script, '%s' is not a valid script.\n",
			script,
		)
		printScripts()
		os.Exit(1)
	}

	fn()
}

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

var scriptMap = map[string]func(){
	"gen:ledger":       generateLedger,
	"dev:apply_ledger": migrateLedger,
	"test:fixture":     refreshFixture,
}

func generateLedger() {
	cmd("sqlc", "generate", "-f", "lib/ledger/db/sqlc.yaml")
}

func migrateLedger() {
	cmd(
		"atlas", "schema", "apply",
		"-u", "sqlite://dev/.state/ledger.db",
		"--to", "file://lib/ledger/db/schema.sql",
		"--dev-url", "sqlite://dev?mode=memory",
	)
}

// refreshFixture downloads the live page next to the extractor fixture so
// markup changes can be compared against it.
func refreshFixture() {
	cmd(
		"curl", "-sSfL",
		"-o", "lib/scrapers/sidefx/testdata/changelog.live.html",
		"https://www.sidefx.com/changelog/",
	)
}
