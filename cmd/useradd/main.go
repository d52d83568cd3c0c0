// Command useradd creates an admin that can log in to the newsletter backend.
// The password is read from the first line of stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/willemschots/newsletter/internal/auth"
	authdb "github.com/willemschots/newsletter/internal/auth/db"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/workpool"
)

const helpText = `Usage: echo "password" | useradd [sqlite_file] [username]`

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, helpText)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	err := run(ctx, os.Args[1], os.Args[2], os.Stdin, os.Stdout)
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbFile, rawUsername string, stdin io.Reader, stdout io.Writer) error {
	username, err := auth.ParseUsername(rawUsername)
	if err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read password from stdin: %w", err)
	}

	password, err := auth.ParsePassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}
	defer password.Wipe()

	sqlDB, err := db.OpenSQLite(dbFile, true)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	pool, err := workpool.New(workpool.Config{Workers: 1, Name: "useradd"}, nil)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Close()

	svc := auth.NewService(authdb.New(sqlDB, sqlDB), auth.NewHasher(pool, krypto.DefaultArgon2Params()))

	user, err := svc.CreateUser(ctx, auth.Credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "created user %s (%s)\n", user.Username, user.ID)
	return nil
}
