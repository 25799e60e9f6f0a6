// main.go
package main

import (
	"log"

	"pos-relay/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
