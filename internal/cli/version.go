package cli

import "fmt"

const Version = "0.3.0"

func HandleVersion() {
	fmt.Printf("cscript %s\n", Version)
}
