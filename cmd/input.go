package cmd

import "context"

// awaitInput runs input until it returns or ctx is done. A read blocked on stdin cannot be
// interrupted, so on cancellation input is left running and its result is dropped.
func awaitInput(ctx context.Context, input func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- input()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}
