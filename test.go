package cocowait

import "fmt"

// ShouldEqualResult checks that given two results are equal and raises an error
// about which parts are different between two.
// It considers the first is 'got' and the second is 'want'.
// An empty want.ID matches any id.
func ShouldEqualResult(got, want *JobResult) error {
	if got == nil && want == nil {
		return nil
	}
	if got == nil {
		return fmt.Errorf("only got is nil")
	}
	if want == nil {
		return fmt.Errorf("only want is nil")
	}
	if want.ID != "" && got.ID != want.ID {
		return fmt.Errorf("ID: got %v, want %v", got.ID, want.ID)
	}
	if got.Success != want.Success {
		return fmt.Errorf("%v: Success: got %v, want %v", got.ID, got.Success, want.Success)
	}
	if got.Errstr != want.Errstr {
		return fmt.Errorf("%v: Errstr: got %q, want %q", got.ID, got.Errstr, want.Errstr)
	}
	return nil
}
