// Command hash-generator prints bcrypt hashes for seeding accounts, such as the
// first admin, directly into the users table.
//
// Usage:
//
//	hash-generator [-cost N] password...
//	echo -n password | hash-generator
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	passwords := flag.Args()
	if len(passwords) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
				passwords = append(passwords, line)
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stdin: %v\n", err)
			os.Exit(1)
		}
	}
	if len(passwords) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	hasher := auth.NewBcryptHasher(*cost)
	failed := false
	for _, password := range passwords {
		if n := len(password); n < domain.MinPasswordLength || n > domain.MaxPasswordLength {
			fmt.Fprintf(os.Stderr, "warning: password length %d is outside %d-%d and would be rejected at registration\n",
				n, domain.MinPasswordLength, domain.MaxPasswordLength)
		}

		hash, err := hasher.Hash(password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			failed = true
			continue
		}
		fmt.Println(hash)
	}

	if failed {
		os.Exit(1)
	}
}
