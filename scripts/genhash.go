// Prints a bcrypt hash for each password given on the command line. Handy for
// seeding test profiles directly in the database.
package main

import (
	"fmt"
	"os"

	"go-brokerage-backend/pkg/password"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: genhash <password> [password...]")
		os.Exit(1)
	}

	for _, pass := range os.Args[1:] {
		hash, err := password.Hash(pass)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		fmt.Printf("Password: %s\nHash: %s\n\n", pass, hash)
	}
}
