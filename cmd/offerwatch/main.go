// Command offerwatch watches marketplace offers for price drops and sends
// e-mail alerts. It is designed to run as the default command of a worker
// container: `offerwatch worker` loops forever, `offerwatch run` does a
// single check.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
