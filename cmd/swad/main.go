// Command swad runs the SWAD authentication gateway.
//
//	swad serve --config swad.yaml
//	swad hash --user alice --name "Alice Doe" < password.txt >> users
//	swad check-config --config swad.yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
