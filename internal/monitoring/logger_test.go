package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("probe")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op that neither panics nor forwards.
	called = false
	SetLogger(nil)
	Logf("probe")
	if called {
		t.Error("no-op logger forwarded a call")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must not be nil by default")
	}
}
