package classify

import "fmt"

// Operation-level error wrappers. Each embeds the transport cause, so
// errors.Is/As see through them when classifying.

// ZoneCreationError reports a rejected custom-zone save. Non-fatal; retry is
// caller policy.
type ZoneCreationError struct {
	Zone string
	Err  error
}

func (e *ZoneCreationError) Error() string {
	return fmt.Sprintf("creating zone %q: %v", e.Zone, e.Err)
}
func (e *ZoneCreationError) Unwrap() error { return e.Err }

// SubscriptionError reports a failed subscription registration.
type SubscriptionError struct {
	ID  string
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("registering subscription %q: %v", e.ID, e.Err)
}
func (e *SubscriptionError) Unwrap() error { return e.Err }

// SaveError reports a failed record save, batch or single.
type SaveError struct {
	Names []string
	Err   error
}

func (e *SaveError) Error() string { return fmt.Sprintf("saving records: %v", e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

// FetchError reports a failed record fetch.
type FetchError struct {
	Name string
	Err  error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetching record %q: %v", e.Name, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// DeleteError reports a failed record deletion.
type DeleteError struct {
	Name string
	Err  error
}

func (e *DeleteError) Error() string { return fmt.Sprintf("deleting record %q: %v", e.Name, e.Err) }
func (e *DeleteError) Unwrap() error { return e.Err }

// ShareError reports a failed share preparation or acceptance.
type ShareError struct {
	RecordName string
	Err        error
}

func (e *ShareError) Error() string {
	return fmt.Sprintf("sharing record %q: %v", e.RecordName, e.Err)
}
func (e *ShareError) Unwrap() error { return e.Err }
