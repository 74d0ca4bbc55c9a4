package cli

import "testing"

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte, confirm bool) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origConfirm := promptConfirmFn
	origAnswers := promptRecoveryAnswersFn
	origQuestions := promptRecoveryQuestionsFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptConfirmFn = origConfirm
		promptRecoveryAnswersFn = origAnswers
		promptRecoveryQuestionsFn = origQuestions
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptConfirmFn = func() bool { return confirm }
	promptRecoveryAnswersFn = func(_ string) (string, error) {
		return "blue\nfluffy\nparis", nil
	}
	promptRecoveryQuestionsFn = func() (string, error) {
		return "What is your favorite color?\nWhat was your childhood pet's name?\nWhat city were you born in?", nil
	}
}
