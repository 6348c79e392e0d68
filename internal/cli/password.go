package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	stdinIsTerminal  = isTerminal
	promptPasswordFn = promptPassword
)

// readPassword returns the password as a locked buffer the caller must
// Destroy. It reads one line from stdin with fromStdin, otherwise prompts
// when stdin is a terminal.
func readPassword(cmd *cobra.Command, fromStdin bool, confirm bool) (*memguard.LockedBuffer, error) {
	if fromStdin {
		return readPasswordLine(cmd.InOrStdin())
	}
	if !stdinIsTerminal(cmd.InOrStdin()) {
		return nil, usageErrorf("%s needs a password: pass --password-stdin or run from a terminal", cmd.CommandPath())
	}
	return promptPasswordFn(confirm)
}

func readPasswordLine(r io.Reader) (*memguard.LockedBuffer, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, mapCommandError(fmt.Errorf("read password from stdin: %w", err))
	}
	trimmed := []byte(strings.TrimRight(string(line), "\r\n"))
	memguard.WipeBytes(line)
	if len(trimmed) == 0 {
		return nil, usageErrorf("--password-stdin requires a non-empty value on stdin")
	}
	return memguard.NewBufferFromBytes(trimmed), nil
}

func promptPassword(confirm bool) (*memguard.LockedBuffer, error) {
	var password, again string
	fields := []huh.Field{
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Validate(func(value string) error {
				if value == "" {
					return errors.New("password cannot be empty")
				}
				return nil
			}).
			Value(&password),
	}
	if confirm {
		fields = append(fields, huh.NewInput().
			Title("Confirm password").
			EchoMode(huh.EchoModePassword).
			Validate(func(value string) error {
				if value != password {
					return errors.New("passwords do not match")
				}
				return nil
			}).
			Value(&again))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, usageErrorf("password prompt cancelled")
		}
		return nil, fmt.Errorf("password prompt: %w", err)
	}
	return memguard.NewBufferFromBytes([]byte(password)), nil
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
