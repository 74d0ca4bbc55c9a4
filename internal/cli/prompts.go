package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/abcore/core/internal/cryptocore"
	coreerr "github.com/abcore/core/pkg/errors"
)

// Function-pointer vars so tests can swap prompt behavior without touching
// the terminal.
var (
	promptPasswordFn          = promptPassword
	promptNewPasswordFn       = promptNewPassword
	promptConfirmFn           = promptConfirmation
	promptRecoveryAnswersFn   = promptRecoveryAnswers
	promptRecoveryQuestionsFn = promptRecoveryQuestions
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter account password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < 8 {
		cryptocore.ZeroBytes(password)
		return nil, coreerr.WithSuggestion(
			coreerr.New("PASSWORD_TOO_SHORT", "password too short"),
			"password must be at least 8 characters",
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		cryptocore.ZeroBytes(password)
		return nil, err
	}
	defer cryptocore.ZeroBytes(confirm)

	if string(password) != string(confirm) {
		cryptocore.ZeroBytes(password)
		return nil, coreerr.WithSuggestion(
			coreerr.New("PASSWORD_MISMATCH", "passwords do not match"),
			"re-enter the same password in both prompts",
		)
	}

	return password, nil
}

// promptRecoveryQuestions prompts the user to enter recovery questions,
// one per line, terminated by a blank line.
func promptRecoveryQuestions() (string, error) {
	outln(os.Stderr, "Enter recovery questions, one per line. Blank line to finish:")

	reader := bufio.NewReader(os.Stdin)
	var questions []string
	for {
		out(os.Stderr, "Question %d: ", len(questions)+1)
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		questions = append(questions, line)
		if err != nil {
			break
		}
	}

	if len(questions) == 0 {
		return "", coreerr.WithSuggestion(
			coreerr.New("NO_QUESTIONS_ENTERED", "no recovery questions entered"),
			"enter at least one recovery question",
		)
	}

	return strings.Join(questions, "\n"), nil
}

// promptRecoveryAnswers prompts for answers to a newline-separated list of
// recovery questions, in order, and returns them newline-joined.
func promptRecoveryAnswers(questions string) (string, error) {
	qs := strings.Split(strings.TrimSpace(questions), "\n")

	reader := bufio.NewReader(os.Stdin)
	answers := make([]string, 0, len(qs))
	for i, q := range qs {
		out(os.Stderr, "%s\nAnswer %d: ", q, i+1)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		answers = append(answers, strings.TrimSpace(line))
	}

	return strings.Join(answers, "\n"), nil
}

// promptConfirmation asks the user to confirm a pending action.
func promptConfirmation() bool {
	out(os.Stderr, "\nAre you sure? [y/N]: ")

	var response string
	_, err := fmt.Scanln(&response)
	if err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
