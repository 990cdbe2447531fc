package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
	"golang.org/x/term"
)

// readPassword is swapped out in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

// hashPassword prints the argon2id record for a password read from in. On
// a terminal the password is prompted twice without echo; otherwise the
// first line of input is used, so the command works in pipelines.
func hashPassword(in *os.File, out io.Writer, pepperFile string) error {
	cryptox.SetPepperPath(pepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return fmt.Errorf("load pepper: %w", err)
	}

	var password string
	if term.IsTerminal(int(in.Fd())) {
		first, err := prompt(in, "Password: ")
		if err != nil {
			return err
		}
		second, err := prompt(in, "Repeat password: ")
		if err != nil {
			return err
		}
		if first != second {
			return errors.New("passwords do not match")
		}
		password = first
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return errors.New("empty password")
	}

	record, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, record)
	return err
}

func prompt(in *os.File, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	pw, err := readPassword(int(in.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
