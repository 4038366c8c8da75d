package cli

import (
	"github.com/charmbracelet/huh/spinner"
)

// RunSpinnerWithResult runs an action with a spinner and returns any error
func RunSpinnerWithResult(title string, fn func() error) error {
	var actionErr error

	err := spinner.New().
		Title("  " + title).
		Action(func() {
			actionErr = fn()
		}).
		Run()

	if err != nil {
		return err
	}
	return actionErr
}
