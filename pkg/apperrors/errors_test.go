package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConnector(t *testing.T) {
	t.Parallel()
	err := Connector(`malformed connection descriptor "bogus"`)

	if !errors.Is(err, ErrConnector) {
		t.Error("expected error to match ErrConnector")
	}
	if err.Error() != `malformed connection descriptor "bogus"` {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestConnection(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("unable to open database file")
	err := Connection("connector.ping", cause)

	if !errors.Is(err, ErrConnection) {
		t.Error("expected error to match ErrConnection")
	}
	if err.Error() != "connector.ping: unable to open database file" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Op != "connector.ping" {
		t.Errorf("expected op 'connector.ping', got %q", appErr.Op)
	}
	if appErr.Cause != cause {
		t.Error("expected cause to be preserved")
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf(`near "SELEKT": syntax error`)
	err := Query(cause)

	if !errors.Is(err, ErrQuery) {
		t.Error("expected error to match ErrQuery")
	}
	if err.Error() != cause.Error() {
		t.Errorf("expected driver message to pass through, got %q", err.Error())
	}
}

func TestPersistence(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("no space left on device")
	err := Persistence("sink.csv", cause)

	if !errors.Is(err, ErrPersistence) {
		t.Error("expected error to match ErrPersistence")
	}
	if errors.Is(err, ErrQuery) {
		t.Error("persistence failure must not classify as a query failure")
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Op != "sink.csv" {
		t.Errorf("expected op 'sink.csv', got %q", appErr.Op)
	}
}

func TestNotReady(t *testing.T) {
	t.Parallel()
	err := NotReady(7)

	if !errors.Is(err, ErrNotReady) {
		t.Error("expected error to match ErrNotReady")
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.JobID != 7 {
		t.Errorf("expected job id 7, got %d", appErr.JobID)
	}
}

func TestJobFailed(t *testing.T) {
	t.Parallel()
	cause := Query(fmt.Errorf(`near "SELEKT": syntax error`))
	err := JobFailed(3, cause)

	if !errors.Is(err, ErrJobFailed) {
		t.Error("expected error to match ErrJobFailed")
	}
	if err.Error() != `job 3 failed: near "SELEKT": syntax error` {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Cause != cause {
		t.Error("expected recorded failure to be preserved as cause")
	}
}

func TestErrorsIsWithWrapping(t *testing.T) {
	t.Parallel()
	// Ensure errors.Is works through fmt.Errorf wrapping
	original := Query(fmt.Errorf("constraint violation"))
	wrapped := fmt.Errorf("worker: %w", original)
	doubleWrapped := fmt.Errorf("handle: %w", wrapped)

	if !errors.Is(doubleWrapped, ErrQuery) {
		t.Error("expected errors.Is to find ErrQuery through multiple wraps")
	}
}
